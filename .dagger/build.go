package main

import (
	"fmt"

	"dagger/wklp/internal/dagger"
)

// Build and return directory of go binaries.
// The sqlite bindings need CGO, so the matrix is limited to targets the
// Bookworm toolchain can compile natively or with the bundled cross gcc.
func (w *WKLP) Build(
	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	goarches := []string{"amd64", "arm64"}

	// create empty directory to put build artifacts
	outputs := dag.Directory()

	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := w.goContainer().
			WithExec([]string{"apt-get", "install", "-y", "gcc-aarch64-linux-gnu"}).
			WithEnvVariable("GOOS", "linux").
			WithEnvVariable("GOARCH", goarch).
			WithEnvVariable("CC", ccFor(goarch)).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/wklp"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

func ccFor(goarch string) string {
	if goarch == "arm64" {
		return "aarch64-linux-gnu-gcc"
	}
	return "gcc"
}

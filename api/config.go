// Package api provides the HTTP server for the question answering service.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string
	// Key is the shared secret expected in the api_key request header
	Key string
	// DefaultRetrieverTopK fills retriever_top_k when the request omits it
	DefaultRetrieverTopK int
	// DefaultReaderTopK fills reader_top_k when the request omits it
	DefaultReaderTopK int
}

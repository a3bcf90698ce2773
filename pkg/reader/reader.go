// Package reader provides answer span extraction over retrieved documents.
//
// A Reader takes the query and a ranked list of candidate documents and
// returns the best answer spans across all of them. The actual span scoring
// is a black-box inference backend; this package owns the service-level
// policy: global ranking, tie-breaking by retrieval rank, and the
// confidence threshold below which answers are dropped entirely.
package reader

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/owlcave/wklp/pkg/corpus"
)

// ErrExtraction is returned when the extraction backend fails or responds
// with something unusable.
var ErrExtraction = errors.New("answer extraction failed")

// Offsets locates an answer span within its context window.
// Invariant: 0 <= Start <= End <= len(Context) and Context[Start:End] == Text.
type Offsets struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Answer is a single extracted answer span.
type Answer struct {
	// Text is the answer substring.
	Text string `json:"answer"`

	// Score is the reader's confidence in [0,1].
	Score float64 `json:"score"`

	// DocumentID identifies the source corpus document.
	DocumentID string `json:"document_id"`

	// Context is the window of document text surrounding the answer.
	Context string `json:"context"`

	// Offsets locates Text within Context.
	Offsets Offsets `json:"offsets"`
}

// Reader extracts answer spans for a query from candidate documents.
// Implementations return at most topK answers, globally ranked by
// descending score, with sub-threshold answers already removed. An empty
// result is a valid outcome, not an error.
type Reader interface {
	Extract(ctx context.Context, query string, docs []corpus.Document, topK int) ([]Answer, error)

	// Close releases any resources held by the reader.
	Close() error
}

// Candidate pairs an extracted answer with the retrieval rank of the
// document it came from. Used by implementations to feed Rank.
type Candidate struct {
	Answer  Answer
	DocRank int
}

// Rank applies the shared ranking policy: drop candidates scoring below
// threshold, order by descending score with ties broken by the lower
// retrieval rank, and truncate to topK. Always returns a non-nil slice so
// "no confident answer" serializes as an empty list.
func Rank(cands []Candidate, topK int, threshold float64) []Answer {
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Answer.Score < threshold {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Answer.Score != kept[j].Answer.Score {
			return kept[i].Answer.Score > kept[j].Answer.Score
		}
		return kept[i].DocRank < kept[j].DocRank
	})

	if topK > 0 && topK < len(kept) {
		kept = kept[:topK]
	}

	answers := make([]Answer, len(kept))
	for i, c := range kept {
		answers[i] = c.Answer
	}
	return answers
}

// contextRadius is how much document text is kept on each side of a span
// when building its context window.
const contextRadius = 100

// BuildContext cuts a window of document text around the answer span and
// relocates the span within it. Offsets into the original text that do not
// line up with the answer (tokenizer drift from the backend) are repaired by
// searching for the answer near the reported position.
func BuildContext(text, answer string, start int) (string, Offsets, bool) {
	if answer == "" {
		return "", Offsets{}, false
	}

	if start < 0 || start+len(answer) > len(text) || text[start:start+len(answer)] != answer {
		idx := strings.Index(text, answer)
		if idx < 0 {
			return "", Offsets{}, false
		}
		start = idx
	}
	end := start + len(answer)

	wStart := start - contextRadius
	if wStart < 0 {
		wStart = 0
	}
	// Back off to a rune boundary so the window never splits a character.
	for wStart > 0 && !utf8.RuneStart(text[wStart]) {
		wStart--
	}
	wEnd := end + contextRadius
	if wEnd > len(text) {
		wEnd = len(text)
	}
	for wEnd < len(text) && !utf8.RuneStart(text[wEnd]) {
		wEnd++
	}

	window := text[wStart:wEnd]
	return window, Offsets{Start: start - wStart, End: end - wStart}, true
}

package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashDimensions is used when a HashEmbedder is built with a non-positive size.
const DefaultHashDimensions = 1024

// HashEmbedder is an offline embedder that hashes word tokens into a fixed number of
// buckets. Texts sharing words land close together, so it favors lexical overlap.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder constructs the embedder.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) ModelName() string { return "hash-bow" }

// Embed counts hashed tokens. Text without tokens yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dim)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum64()%uint64(e.dim)]++
	}
	return vec, nil
}

// Tokenize splits text into lower-cased runs of letters and digits, keeping repeats.
func Tokenize(text string) []string {
	tokens := make([]string, 0, 8)
	var sb strings.Builder
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		tokens = append(tokens, sb.String())
		sb.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return tokens
}

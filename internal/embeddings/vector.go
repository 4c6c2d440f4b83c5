package embeddings

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// DefaultCacheSize bounds the number of cached vectors per VectorProvider.
const DefaultCacheSize = 4096

// VectorProvider scores texts by cosine similarity of their embeddings.
// Vectors are cached per text; the cache is dropped wholesale once it is full.
type VectorProvider struct {
	embedder Embedder
	maxCache int

	mu    sync.RWMutex
	cache map[string][]float32
}

// NewVectorProvider wraps an embedder. cacheSize <= 0 selects DefaultCacheSize.
func NewVectorProvider(embedder Embedder, cacheSize int) *VectorProvider {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &VectorProvider{
		embedder: embedder,
		maxCache: cacheSize,
		cache:    make(map[string][]float32),
	}
}

// ModelName reports the underlying embedder.
func (p *VectorProvider) ModelName() string { return p.embedder.ModelName() }

// Similarity implements Provider.
func (p *VectorProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := p.vector(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := p.vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return Cosine(va, vb), nil
}

func (p *VectorProvider) vector(ctx context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	vec, ok := p.cache[text]
	p.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", text, err)
	}

	p.mu.Lock()
	if len(p.cache) >= p.maxCache {
		p.cache = make(map[string][]float32, p.maxCache)
	}
	p.cache[text] = vec
	p.mu.Unlock()
	return vec, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero norm.
// Extra trailing dimensions of the longer vector are ignored.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0
	}
	return dot / den
}

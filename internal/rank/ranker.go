// Package rank orders FAQ records by semantic similarity to a query.
package rank

import (
	"context"
	"errors"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/xiy/faq-search/internal/embeddings"
	"github.com/xiy/faq-search/pkg/types"
)

// Options tune how scoring is scheduled.
type Options struct {
	// Concurrency caps parallel provider calls. Values <= 0 select GOMAXPROCS.
	Concurrency int
	// Timeout bounds each provider call. Zero disables the per-call deadline.
	Timeout time.Duration
}

// Ranker scores a corpus against a query and keeps the best entries.
// It holds no per-call state and may be shared between goroutines.
type Ranker struct {
	provider embeddings.Provider
	opts     Options
	logger   *log.Logger
}

// NewRanker constructs a ranker around a similarity provider.
func NewRanker(provider embeddings.Provider, opts Options, logger *log.Logger) *Ranker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Ranker{provider: provider, opts: opts, logger: logger}
}

// Rank returns the topK records of corpus ordered by descending similarity to query.
// Equal scores keep corpus order. Any provider failure fails the whole call with a
// *ProviderError; no partial result is returned.
func (r *Ranker) Rank(ctx context.Context, query string, corpus []types.FAQRecord, topK int) ([]types.RankedResult, error) {
	if topK < 0 {
		return nil, &InvalidArgumentError{Name: "top_k", Reason: "must be >= 0"}
	}
	if len(corpus) == 0 || topK == 0 {
		return []types.RankedResult{}, nil
	}

	scores, err := r.score(ctx, query, corpus)
	if err != nil {
		return nil, err
	}

	results := make([]types.RankedResult, len(corpus))
	for i, rec := range corpus {
		results[i] = types.RankedResult{
			ID:              rec.ID,
			Question:        rec.Question,
			Answer:          rec.Answer,
			SimilarityScore: scores[i],
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})

	if len(results) > topK {
		results = results[:topK]
	}
	r.logger.Debug("ranked corpus", "query", query, "candidates", len(corpus), "returned", len(results))
	return results, nil
}

func (r *Ranker) score(ctx context.Context, query string, corpus []types.FAQRecord) ([]float64, error) {
	scores := make([]float64, len(corpus))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i := range corpus {
		g.Go(func() error {
			rec := corpus[i]
			s, err := r.similarity(gctx, query, rec.Question)
			if err == nil && math.IsNaN(s) {
				err = errors.New("score is NaN")
			}
			if err != nil {
				return &ProviderError{
					Query:    query,
					Index:    i,
					RecordID: rec.ID,
					Question: rec.Question,
					Err:      err,
				}
			}
			scores[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *Ranker) similarity(ctx context.Context, query, question string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r.opts.Timeout <= 0 {
		return r.provider.Similarity(ctx, query, question)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	s, err := r.provider.Similarity(callCtx, query, question)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	return s, err
}

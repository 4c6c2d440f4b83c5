// Package faq exposes the search entry point over the stored FAQ corpus.
package faq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/xiy/faq-search/internal/config"
	"github.com/xiy/faq-search/pkg/types"
)

// Corpus is the read side of the record store used by Search.
type Corpus interface {
	FetchAll(ctx context.Context) ([]types.FAQRecord, error)
	FetchMatching(ctx context.Context, query string, limit int) ([]types.FAQRecord, error)
}

// Seeder replaces the stored corpus.
type Seeder interface {
	Reseed(ctx context.Context, faqs []types.FAQRecord) ([]types.FAQRecord, error)
}

// Ranker orders a corpus snapshot against a query.
type Ranker interface {
	Rank(ctx context.Context, query string, corpus []types.FAQRecord, topK int) ([]types.RankedResult, error)
}

// SearchLogSink records search events. Optional.
type SearchLogSink interface {
	InsertSearchLog(ctx context.Context, rec types.SearchLog) error
}

// Service composes corpus access and ranking.
type Service struct {
	corpus Corpus
	ranker Ranker
	sink   SearchLogSink
	cfg    config.Config
	logger *log.Logger
	now    func() time.Time
}

// NewService constructs an FAQ search service. sink may be nil.
func NewService(corpus Corpus, ranker Ranker, sink SearchLogSink, cfg config.Config, logger *log.Logger) *Service {
	return &Service{
		corpus: corpus,
		ranker: ranker,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Search fetches the current corpus and returns the topK closest questions.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]types.RankedResult, error) {
	start := s.now()
	results, err := s.search(ctx, query, topK)
	s.record(ctx, query, topK, results, err, start)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) search(ctx context.Context, query string, topK int) ([]types.RankedResult, error) {
	corpus, err := s.fetch(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return s.ranker.Rank(ctx, query, corpus, topK)
}

func (s *Service) fetch(ctx context.Context, query string) ([]types.FAQRecord, error) {
	if s.cfg.Prefilter {
		return s.corpus.FetchMatching(ctx, query, s.cfg.PrefilterLimit)
	}
	return s.corpus.FetchAll(ctx)
}

func (s *Service) record(ctx context.Context, query string, topK int, results []types.RankedResult, searchErr error, start time.Time) {
	end := s.now()
	rec := types.SearchLog{
		ID:         uuid.NewString(),
		Query:      query,
		TopK:       topK,
		Results:    len(results),
		Success:    searchErr == nil,
		DurationMS: end.Sub(start).Milliseconds(),
		CreatedAt:  end.UTC(),
	}
	if len(results) > 0 {
		rec.TopQuestion = results[0].Question
	}
	if searchErr != nil {
		rec.ErrorText = searchErr.Error()
		s.logger.Warn("search failed", "query", query, "top_k", topK, "error", searchErr)
	} else {
		s.logger.Info("search", "query", query, "top_k", topK, "results", len(results))
	}

	if s.sink == nil {
		return
	}
	// Record even when the caller's context is already done.
	if err := s.sink.InsertSearchLog(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record search", "id", rec.ID, "error", err)
	}
}

// Seed replaces the stored corpus with faqs.
func Seed(ctx context.Context, seeder Seeder, faqs []types.FAQRecord, logger *log.Logger) ([]types.FAQRecord, error) {
	if len(faqs) == 0 {
		return nil, errors.New("no faqs to seed")
	}
	stored, err := seeder.Reseed(ctx, faqs)
	if err != nil {
		return nil, fmt.Errorf("seed corpus: %w", err)
	}
	logger.Info("seeded faq corpus", "count", len(stored))
	return stored, nil
}

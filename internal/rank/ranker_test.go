package rank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiy/faq-search/internal/embeddings"
	"github.com/xiy/faq-search/pkg/types"
)

var sampleCorpus = []types.FAQRecord{
	{ID: 1, Question: "How do I reset my password?", Answer: "Click 'Forgot Password' on the login page."},
	{ID: 2, Question: "What are the shipping costs?", Answer: "Free over $50, otherwise $5."},
	{ID: 3, Question: "Can I return an item?", Answer: "Within 30 days."},
	{ID: 4, Question: "How long does shipping take?", Answer: "3-5 business days."},
	{ID: 5, Question: "Do you offer international shipping?", Answer: "US, Canada and Mexico."},
	{ID: 6, Question: "What payment methods do you accept?", Answer: "Visa, MasterCard, Amex, PayPal."},
	{ID: 7, Question: "How can I track my order?", Answer: "Use the tracking number."},
	{ID: 8, Question: "Are there any discounts available?", Answer: "Student and military."},
	{ID: 9, Question: "What is your privacy policy?", Answer: "We do not sell personal data."},
	{ID: 10, Question: "How do I contact customer support?", Answer: "support@example.com"},
}

// tableProvider scores by a fixed question -> score table.
type tableProvider struct {
	scores map[string]float64
	fail   map[string]error
	calls  atomic.Int64
}

func (p *tableProvider) Similarity(_ context.Context, _, question string) (float64, error) {
	p.calls.Add(1)
	if err, ok := p.fail[question]; ok {
		return 0, err
	}
	return p.scores[question], nil
}

// blockingProvider waits until its context ends.
type blockingProvider struct{}

func (blockingProvider) Similarity(ctx context.Context, _, _ string) (float64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

type constProvider float64

func (c constProvider) Similarity(context.Context, string, string) (float64, error) {
	return float64(c), nil
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func hashRanker(concurrency int) *Ranker {
	p := embeddings.NewVectorProvider(embeddings.NewHashEmbedder(1024), 0)
	return NewRanker(p, Options{Concurrency: concurrency}, discardLogger())
}

func TestRank_PasswordResetScenario(t *testing.T) {
	t.Parallel()
	got, err := hashRanker(0).Rank(context.Background(), "password reset", sampleCorpus, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "How do I reset my password?", got[0].Question)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Greater(t, got[0].SimilarityScore, 0.0)
}

func TestRank_DuplicateQuestionsKeepCorpusOrder(t *testing.T) {
	t.Parallel()
	corpus := make([]types.FAQRecord, 10)
	for i := range corpus {
		corpus[i] = types.FAQRecord{ID: int64(100 + i), Question: fmt.Sprintf("Distinct question %d?", i), Answer: fmt.Sprintf("a%d", i)}
	}
	corpus[3] = types.FAQRecord{ID: 103, Question: "What is your privacy policy?", Answer: "first copy"}
	corpus[7] = types.FAQRecord{ID: 107, Question: "What is your privacy policy?", Answer: "second copy"}

	for _, concurrency := range []int{1, 4, 16} {
		got, err := hashRanker(concurrency).Rank(context.Background(), "privacy policy", corpus, len(corpus))
		require.NoError(t, err)
		require.Len(t, got, len(corpus))

		first, second := -1, -1
		for i, r := range got {
			switch r.ID {
			case 103:
				first = i
			case 107:
				second = i
			}
		}
		require.NotEqual(t, -1, first)
		require.NotEqual(t, -1, second)
		assert.Less(t, first, second, "concurrency=%d", concurrency)
		assert.Equal(t, got[first].SimilarityScore, got[second].SimilarityScore)
	}
}

func TestRank_AllTiesPreserveInputOrder(t *testing.T) {
	t.Parallel()
	r := NewRanker(constProvider(0.5), Options{Concurrency: 8}, discardLogger())
	got, err := r.Rank(context.Background(), "anything", sampleCorpus, len(sampleCorpus))
	require.NoError(t, err)
	for i, res := range got {
		assert.Equal(t, sampleCorpus[i].ID, res.ID)
	}
}

func TestRank_EmptyCorpus(t *testing.T) {
	t.Parallel()
	got, err := hashRanker(0).Rank(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_ZeroTopK(t *testing.T) {
	t.Parallel()
	got, err := hashRanker(0).Rank(context.Background(), "password reset", sampleCorpus, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRank_NegativeTopK(t *testing.T) {
	t.Parallel()
	_, err := hashRanker(0).Rank(context.Background(), "q", sampleCorpus, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	var argErr *InvalidArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "top_k", argErr.Name)
}

func TestRank_TopKBound(t *testing.T) {
	t.Parallel()
	r := hashRanker(3)
	for k := 0; k <= len(sampleCorpus)+3; k++ {
		got, err := r.Rank(context.Background(), "shipping", sampleCorpus, k)
		require.NoError(t, err)
		assert.Len(t, got, min(k, len(sampleCorpus)), "k=%d", k)
	}
}

func TestRank_ScoresNonIncreasing(t *testing.T) {
	t.Parallel()
	for _, q := range []string{"shipping costs", "track my order", "how do i", "", "zzz"} {
		got, err := hashRanker(0).Rank(context.Background(), q, sampleCorpus, len(sampleCorpus))
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].SimilarityScore, got[i].SimilarityScore, "query=%q pos=%d", q, i)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	t.Parallel()
	r := hashRanker(8)
	want, err := r.Rank(context.Background(), "shipping", sampleCorpus, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		got, err := r.Rank(context.Background(), "shipping", sampleCorpus, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRank_NoThreshold(t *testing.T) {
	t.Parallel()
	p := &tableProvider{scores: map[string]float64{
		"How do I reset my password?":  -3,
		"What are the shipping costs?": -7.5,
	}}
	r := NewRanker(p, Options{Concurrency: 1}, discardLogger())
	got, err := r.Rank(context.Background(), "q", sampleCorpus[:2], 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, -3.0, got[0].SimilarityScore)
	assert.Equal(t, -7.5, got[1].SimilarityScore)
}

func TestRank_ProviderFailureFailsWholeCall(t *testing.T) {
	t.Parallel()
	boom := errors.New("model unavailable")
	p := &tableProvider{
		scores: map[string]float64{},
		fail:   map[string]error{"Can I return an item?": boom},
	}
	r := NewRanker(p, Options{Concurrency: 1}, discardLogger())

	got, err := r.Rank(context.Background(), "returns", sampleCorpus, 10)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, boom)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "returns", perr.Query)
	assert.Equal(t, int64(3), perr.RecordID)
	assert.Equal(t, 2, perr.Index)
	assert.Equal(t, "Can I return an item?", perr.Question)
}

func TestRank_ProviderFailureStopsRemainingCalls(t *testing.T) {
	t.Parallel()
	p := &tableProvider{
		scores: map[string]float64{},
		fail:   map[string]error{sampleCorpus[0].Question: errors.New("down")},
	}
	r := NewRanker(p, Options{Concurrency: 1}, discardLogger())
	_, err := r.Rank(context.Background(), "q", sampleCorpus, 10)
	require.Error(t, err)
	assert.Equal(t, int64(1), p.calls.Load())
}

func TestRank_NaNScoreIsProviderError(t *testing.T) {
	t.Parallel()
	p := &tableProvider{scores: map[string]float64{sampleCorpus[1].Question: math.NaN()}}
	r := NewRanker(p, Options{Concurrency: 2}, discardLogger())
	_, err := r.Rank(context.Background(), "q", sampleCorpus[:3], 3)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, int64(2), perr.RecordID)
}

func TestRank_PerCallTimeout(t *testing.T) {
	t.Parallel()
	r := NewRanker(blockingProvider{}, Options{Concurrency: 2, Timeout: 20 * time.Millisecond}, discardLogger())

	start := time.Now()
	_, err := r.Rank(context.Background(), "q", sampleCorpus, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRank_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hashRanker(2).Rank(ctx, "q", sampleCorpus, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_DoesNotMutateCorpus(t *testing.T) {
	t.Parallel()
	corpus := append([]types.FAQRecord(nil), sampleCorpus...)
	_, err := hashRanker(4).Rank(context.Background(), "track my order", corpus, 3)
	require.NoError(t, err)
	assert.Equal(t, sampleCorpus, corpus)
}

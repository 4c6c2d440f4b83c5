package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Parallel()
	var gotReq struct {
		Input      []string `json:"input"`
		Model      string   `json:"model"`
		Dimensions int      `json:"dimensions"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25,0]}],"model":"test-embed","usage":{"prompt_tokens":3,"total_tokens":3}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1",
		Model:      "test-embed",
		Dimensions: 3,
	})
	assert.Equal(t, "test-embed", e.ModelName())

	vec, err := e.Embed(context.Background(), "How do I reset my password?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0}, vec)
	assert.Equal(t, []string{"How do I reset my password?"}, gotReq.Input)
	assert.Equal(t, "test-embed", gotReq.Model)
	assert.Equal(t, 3, gotReq.Dimensions)
}

func TestOpenAIEmbedder_APIErrorIsProviderUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model is loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL + "/v1", Model: "test-embed"})
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "503")
}

func TestOpenAIEmbedder_EmptyResponse(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"test-embed"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL + "/v1", Model: "test-embed"})
	_, err := e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestOpenAIEmbedder_WithVectorProvider(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		vec := "[1,0]"
		if len(req.Input) == 1 && req.Input[0] == "b" {
			vec = "[0,1]"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":` + vec + `}],"model":"m"}`))
	}))
	defer srv.Close()

	p := NewVectorProvider(NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL + "/v1", Model: "m"}), 8)
	same, err := p.Similarity(context.Background(), "a", "a")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same, 1e-9)

	orth, err := p.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, orth, 1e-9)
}

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenbank/internal/core"
	"zenbank/internal/suggest"
)

func TestRecommendAmounts(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"recommendedAmounts\":[500,1000,1500]}"}}]}`))
	}))
	defer srv.Close()

	c := New("sk-test", srv.URL+"/v1/", "")
	amounts, err := c.RecommendAmounts(context.Background(), suggest.Request{History: []float64{480, 510, 495}, Type: core.Withdrawal})

	require.NoError(t, err)
	assert.Equal(t, []float64{500, 1000, 1500}, amounts)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[1].Content, "withdrawal")
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestRecommendAmountsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	_, err := New("k", srv.URL, "m").RecommendAmounts(context.Background(), suggest.Request{History: []float64{1}})
	assert.ErrorContains(t, err, "rate limited")
}

func TestRecommendAmountsNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New("k", srv.URL, "m").RecommendAmounts(context.Background(), suggest.Request{History: []float64{1}})
	assert.ErrorContains(t, err, "no choices")
}

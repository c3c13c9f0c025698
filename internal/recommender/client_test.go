package recommender

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

func TestHTTPClient_Recommend(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict-career", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"recommendedCareers": [{"role": "Data Scientist", "confidence": 0.82}, {"role": "ML Engineer", "confidence": 0.11}],
			"meta": {"model_version": "1.0", "model_type": "RandomForest"}
		}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/", time.Second)
	resp, err := client.Recommend(context.Background(), models.Profile{
		Education: "Graduate",
		Skills:    []string{"python"},
		Interests: "statistics",
		Role:      "Data Scientist",
	})
	require.NoError(t, err)

	assert.Equal(t, "Graduate", got.Education)
	assert.Equal(t, []string{"python"}, got.Skills)
	require.Len(t, resp.RecommendedCareers, 2)
	assert.Equal(t, "Data Scientist", resp.RecommendedCareers[0].Role)
	assert.InDelta(t, 0.82, resp.RecommendedCareers[0].Confidence, 1e-9)
	assert.Equal(t, "RandomForest", resp.Meta["model_type"])
}

func TestHTTPClient_NilSkillsSentAsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, []any{}, raw["skills"])
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := NewHTTPClient(srv.URL, time.Second).Recommend(context.Background(), models.Profile{Education: "x", Role: "y"})
	require.NoError(t, err)
	assert.NotNil(t, resp.RecommendedCareers)
	assert.Empty(t, resp.RecommendedCareers)
}

func TestHTTPClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).Recommend(context.Background(), models.Profile{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewHTTPClient(srv.URL, 50*time.Millisecond).Recommend(context.Background(), models.Profile{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok","model_loaded":true}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewHTTPClient(srv.URL, time.Second).HealthCheck(context.Background()))
}

type countingRecommender struct {
	calls int
}

func (c *countingRecommender) Recommend(_ context.Context, _ models.Profile) (*Response, error) {
	c.calls++
	return &Response{RecommendedCareers: []models.Recommendation{{Role: "SRE", Confidence: 0.5}}}, nil
}

func TestCached_FallsThroughWhenRedisDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	next := &countingRecommender{}
	cached := NewCached(next, client, time.Minute)

	resp, err := cached.Recommend(context.Background(), models.Profile{Education: "Graduate"})
	require.NoError(t, err)
	assert.Equal(t, "SRE", resp.RecommendedCareers[0].Role)
	assert.Equal(t, 1, next.calls)
	assert.Error(t, cached.HealthCheck(context.Background()))
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(models.Profile{Education: "Graduate", Skills: []string{"Python", "sql"}, Interests: "data", Role: "A"})
	b := CacheKey(models.Profile{Education: " graduate", Skills: []string{"SQL", "python"}, Interests: "Data", Role: "B"})
	c := CacheKey(models.Profile{Education: "Graduate", Skills: []string{"python"}, Interests: "data"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, cacheKeyPrefix)
}

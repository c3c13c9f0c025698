package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roadmap-engine/internal/api"
	"github.com/terra-clan/roadmap-engine/internal/auth"
	"github.com/terra-clan/roadmap-engine/internal/config"
	"github.com/terra-clan/roadmap-engine/internal/evaluation"
	"github.com/terra-clan/roadmap-engine/internal/llm"
	"github.com/terra-clan/roadmap-engine/internal/models"
	"github.com/terra-clan/roadmap-engine/internal/recommender"
	"github.com/terra-clan/roadmap-engine/internal/roadmap"
	"github.com/terra-clan/roadmap-engine/internal/skillgap"
	"github.com/terra-clan/roadmap-engine/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	provider := storage.NewStaticProvider(repo)

	// Nothing listens on the recommender address; generation degrades to no recommendations
	rec := recommender.NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)

	srv := api.NewServer(config.ServerConfig{RequestTimeout: 10 * time.Second}, config.RateLimitConfig{}, api.Services{
		Generator:   roadmap.NewGenerator(skillgap.DefaultTable(), rec, llm.Disabled{}),
		Roadmaps:    roadmap.NewService(provider, nil),
		Evaluations: evaluation.NewService(provider),
		Accounts:    auth.NewService(provider, auth.NewTokenService("client-test-secret-123", 1), auth.NewPasswordHasher(4)),
		Storage:     provider,
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := NewClient(ts.URL, WithTimeout(5*time.Second))

	require.NoError(t, c.Health(ctx))

	session, err := c.Register(ctx, "Linus", "linus@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, session.Token, c.Token())
	assert.Equal(t, "linus@example.com", session.User.Email)

	generated, err := c.Generate(ctx, models.Profile{
		Education: "Self-Taught",
		Skills:    []string{"java"},
		Role:      "AI Engineer",
	})
	require.NoError(t, err)
	assert.True(t, generated.Fallback)
	assert.Empty(t, generated.MLRecommendations)
	assert.Contains(t, generated.TriggeredRules, "Missing Core Language (Python)")
	assert.Equal(t, 0, generated.SkillsAnalysis.MatchScore)

	saved, err := c.SaveRoadmap(ctx, generated.Roadmap)
	require.NoError(t, err)
	require.NotNil(t, saved.Roadmap)
	require.NotEmpty(t, saved.Roadmap.Progress.Skills)
	id := saved.Roadmap.ID

	skill := saved.Roadmap.Progress.Skills[0].Name
	toggled, err := c.ToggleSkill(ctx, id, ToggleSkillRequest{SkillName: skill, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, toggled.Progress.CompletedSkills)

	toggled, err = c.ToggleSkill(ctx, id, ToggleSkillRequest{SkillName: skill, Completed: false})
	require.NoError(t, err)
	assert.Equal(t, saved.Roadmap.Progress.Skills, toggled.Progress.Skills)
	assert.Equal(t, 0, toggled.Progress.Percentage)

	init, err := c.InitializeProgress(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Progress already initialized", init.Message)

	list, err := c.ListRoadmaps(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	history, err := c.RoadmapHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	ev, err := c.Evaluate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusJustStarted, ev.Status)

	rows, err := c.ExportDataset(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AI Engineer", rows[0].Role)
	assert.Equal(t, "java", rows[0].StartSkills)
}

func TestClient_APIError(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := NewClient(ts.URL)
	_, err := c.ListRoadmaps(ctx)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)

	_, err = c.Login(ctx, "nobody@example.com", "whatever")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Empty(t, c.Token())
}

func TestClient_GetMissingRoadmap(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	c := NewClient(ts.URL)
	_, err := c.Register(ctx, "Ken", "ken@example.com", "password1")
	require.NoError(t, err)

	_, err = c.GetRoadmap(ctx, "does-not-exist")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClient_NonEnvelopeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewClient(ts.URL, WithToken("abc")).Health(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bad gateway")
}

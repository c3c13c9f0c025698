package storage

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo Repository, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func createRoadmap(t *testing.T, repo Repository, userID string, skills []string, createdAt time.Time) *models.Roadmap {
	t.Helper()
	rm := &models.Roadmap{
		ID:     uuid.New().String(),
		UserID: userID,
		Artifact: models.Artifact{
			UserSummary:    models.UserSummary{Role: "Backend Developer", Education: "Graduate"},
			JobSuggestions: []models.JobSuggestion{{Title: "Backend Engineer"}},
			SkillsAnalysis: models.SkillsAnalysis{ExistingSkills: models.SkillNames{"go"}},
			Roadmap:        []models.Phase{{Phase: "Months 1-2", Skills: skills}},
		},
		CreatedAt: createdAt,
	}
	if len(skills) > 0 {
		rm.Progress = models.NewProgress(skills, createdAt)
	}
	require.NoError(t, repo.CreateRoadmap(context.Background(), rm))
	return rm
}

func assertConsistent(t *testing.T, p models.Progress) {
	t.Helper()
	completed := 0
	for _, s := range p.Skills {
		if s.Completed {
			completed++
		}
	}
	assert.Equal(t, len(p.Skills), p.TotalSkills)
	assert.Equal(t, completed, p.CompletedSkills)
	assert.Equal(t, models.Percentage(completed, len(p.Skills)), p.Percentage)
}

func TestSQLite_Users(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := createUser(t, repo, "Ada@Example.com")

	got, err := repo.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	byID, err := repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &models.User{ID: uuid.New().String(), Name: "Other", Email: "ADA@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), ErrEmailTaken)
}

func TestSQLite_GetRoadmapScopedToOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := createUser(t, repo, "owner@example.com")
	other := createUser(t, repo, "other@example.com")

	rm := createRoadmap(t, repo, owner.ID, []string{"Go", "SQL"}, time.Now().UTC())

	got, err := repo.GetRoadmap(ctx, rm.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Backend Developer", got.Role())
	assert.Equal(t, []string{"Go", "SQL"}, []string{got.Progress.Skills[0].Name, got.Progress.Skills[1].Name})
	assert.Equal(t, 2, got.Progress.TotalSkills)
	require.NotNil(t, got.Progress.LastUpdated)

	leaked, err := repo.GetRoadmap(ctx, rm.ID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, leaked)
}

func TestSQLite_ToggleSkill(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")
	rm := createRoadmap(t, repo, u.ID, []string{"Go", "SQL", "Docker"}, time.Now().UTC())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := repo.ToggleSkill(ctx, rm.ID, u.ID, "SQL", true, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Progress.CompletedSkills)
	assert.Equal(t, 33, got.Progress.Percentage)
	assert.True(t, got.Progress.LastUpdated.Equal(now))

	got, err = repo.ToggleSkill(ctx, rm.ID, u.ID, "Kubernetes", true, now)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Progress.TotalSkills)
	assert.Equal(t, 50, got.Progress.Percentage)
	assert.Equal(t, "Kubernetes", got.Progress.Skills[3].Name)

	stored, err := repo.GetRoadmap(ctx, rm.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Progress.Skills, stored.Progress.Skills)
	assertConsistent(t, stored.Progress)
}

func TestSQLite_ToggleSkillOtherUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := createUser(t, repo, "owner@example.com")
	other := createUser(t, repo, "other@example.com")
	rm := createRoadmap(t, repo, owner.ID, []string{"Go"}, time.Now().UTC())

	got, err := repo.ToggleSkill(ctx, rm.ID, other.ID, "Go", true, time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)

	stored, err := repo.GetRoadmap(ctx, rm.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, stored.Progress.Skills[0].Completed)
}

func TestSQLite_ToggleRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")
	rm := createRoadmap(t, repo, u.ID, []string{"A", "B", "C"}, time.Now().UTC())

	_, err := repo.ToggleSkill(ctx, rm.ID, u.ID, "A", true, time.Now())
	require.NoError(t, err)
	before, err := repo.GetRoadmap(ctx, rm.ID, u.ID)
	require.NoError(t, err)

	_, err = repo.ToggleSkill(ctx, rm.ID, u.ID, "B", true, time.Now())
	require.NoError(t, err)
	after, err := repo.ToggleSkill(ctx, rm.ID, u.ID, "B", false, time.Now())
	require.NoError(t, err)

	assert.Equal(t, before.Progress.Skills, after.Progress.Skills)
	assert.Equal(t, before.Progress.Percentage, after.Progress.Percentage)
}

func TestSQLite_ToggleSequenceKeepsInvariant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")
	rm := createRoadmap(t, repo, u.ID, []string{"A", "B", "C", "D", "E", "F", "G"}, time.Now().UTC())

	rng := rand.New(rand.NewSource(42))
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	for i := 0; i < 50; i++ {
		got, err := repo.ToggleSkill(ctx, rm.ID, u.ID, names[rng.Intn(len(names))], rng.Intn(2) == 0, time.Now())
		require.NoError(t, err)
		assertConsistent(t, got.Progress)
	}
}

func TestSQLite_ConcurrentTogglesOnDifferentSkills(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")

	skills := make([]string, 20)
	for i := range skills {
		skills[i] = fmt.Sprintf("skill-%02d", i)
	}
	rm := createRoadmap(t, repo, u.ID, skills, time.Now().UTC())

	var wg sync.WaitGroup
	for _, name := range skills {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := repo.ToggleSkill(ctx, rm.ID, u.ID, name, true, time.Now())
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	got, err := repo.GetRoadmap(ctx, rm.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Progress.CompletedSkills)
	assert.Equal(t, 100, got.Progress.Percentage)
}

func TestSQLite_ListRoadmapsOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	oldest := createRoadmap(t, repo, u.ID, []string{"A"}, base)
	middle := createRoadmap(t, repo, u.ID, nil, base.Add(time.Hour))
	newest := createRoadmap(t, repo, u.ID, []string{"B"}, base.Add(2*time.Hour))

	_, err := repo.ToggleSkill(ctx, oldest.ID, u.ID, "A", true, base.Add(3*time.Hour))
	require.NoError(t, err)

	list, err := repo.ListRoadmaps(ctx, models.RoadmapFilters{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{oldest.ID, newest.ID, middle.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

	byCreated, err := repo.ListRoadmaps(ctx, models.RoadmapFilters{UserID: u.ID, OrderByCreated: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, byCreated, 2)
	assert.Equal(t, newest.ID, byCreated[0].ID)
	assert.Equal(t, middle.ID, byCreated[1].ID)
}

func TestSQLite_Evaluations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := createUser(t, repo, "t@example.com")
	other := createUser(t, repo, "o@example.com")
	rm := createRoadmap(t, repo, u.ID, []string{"A"}, time.Now().UTC())
	otherRm := createRoadmap(t, repo, other.ID, []string{"A"}, time.Now().UTC())

	ev := &models.Evaluation{RoadmapID: rm.ID, CompletionRate: 10, TotalSkills: 10, CompletedSkillsCount: 1, Status: models.StatusOnTrack, LastUpdated: time.Now()}
	require.NoError(t, repo.UpsertEvaluation(ctx, ev))
	ev.CompletionRate = 20
	ev.Status = models.StatusStalled
	require.NoError(t, repo.UpsertEvaluation(ctx, ev))
	require.NoError(t, repo.UpsertEvaluation(ctx, &models.Evaluation{RoadmapID: otherRm.ID, Status: models.StatusJustStarted, LastUpdated: time.Now()}))

	list, err := repo.ListEvaluations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 20, list[0].Evaluation.CompletionRate)
	assert.Equal(t, models.StatusStalled, list[0].Evaluation.Status)
	assert.Equal(t, "Graduate", list[0].Roadmap.Education())
}

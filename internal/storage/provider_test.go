package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

func TestProvider_FailsFastWithinRetryInterval(t *testing.T) {
	calls := 0
	p := NewProvider(func(ctx context.Context) (Repository, error) {
		calls++
		return nil, errors.New("connection refused")
	}, time.Minute)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, calls)

	now = now.Add(2 * time.Minute)
	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, calls)
	assert.False(t, p.Connected())
}

func TestProvider_CachesRepository(t *testing.T) {
	calls := 0
	p := NewProvider(func(ctx context.Context) (Repository, error) {
		calls++
		return NewSQLiteRepository(ctx, ":memory:")
	}, time.Minute)
	defer p.Close()

	first, err := p.Acquire(context.Background())
	require.NoError(t, err)
	second, err := p.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first.(*guardedRepository).Repository, second.(*guardedRepository).Repository)
	assert.Equal(t, 1, calls)
	assert.True(t, p.Connected())
	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestProvider_RecoversAfterFailure(t *testing.T) {
	fail := true
	p := NewProvider(func(ctx context.Context) (Repository, error) {
		if fail {
			return nil, errors.New("down")
		}
		return NewSQLiteRepository(ctx, ":memory:")
	}, 0)
	defer p.Close()

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	fail = false
	repo, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, repo)
}

func TestStaticProvider_ClosedDatabaseIsUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	p := NewStaticProvider(repo)
	ctx := context.Background()

	acquired, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, p.Connected())

	require.NoError(t, repo.Close())

	_, err = acquired.ListRoadmaps(ctx, models.RoadmapFilters{UserID: "u"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, p.Connected())

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Error(t, p.HealthCheck(ctx))
}

// flakyRepository fails every call with err until err is cleared
type flakyRepository struct {
	Repository
	err error
}

func (f *flakyRepository) ListRoadmaps(context.Context, models.RoadmapFilters) ([]*models.Roadmap, error) {
	return nil, f.err
}

func (f *flakyRepository) Ping(context.Context) error {
	return f.err
}

func TestStaticProvider_RevivesAfterOutage(t *testing.T) {
	flaky := &flakyRepository{}
	p := NewStaticProvider(flaky)
	p.retryInterval = time.Minute
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	repo, err := p.Acquire(ctx)
	require.NoError(t, err)

	flaky.err = &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	_, err = repo.ListRoadmaps(ctx, models.RoadmapFilters{})
	require.ErrorIs(t, err, ErrUnavailable)

	flaky.err = nil
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrUnavailable, "still inside the retry window")

	now = now.Add(2 * time.Minute)
	_, err = p.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, p.Connected())
}

func TestProvider_QueryErrorsKeepConnection(t *testing.T) {
	flaky := &flakyRepository{err: errors.New("syntax error at or near SELECT")}
	p := NewStaticProvider(flaky)

	repo, err := p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = repo.ListRoadmaps(context.Background(), models.RoadmapFilters{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.True(t, p.Connected())
}

func TestProvider_ConnectDoesNotBlockOtherCallers(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := NewProvider(func(ctx context.Context) (Repository, error) {
		close(entered)
		<-release
		return NewSQLiteRepository(ctx, ":memory:")
	}, time.Minute)
	defer p.Close()

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		done <- err
	}()
	<-entered

	// The first attempt is still blocked in the connector
	assert.False(t, p.Connected())
	_, err := p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, p.Connected())
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"query error", errors.New("no such column: foo"), false},
		{"cancelled", fmt.Errorf("failed to list roadmaps: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("failed to list roadmaps: %w", context.DeadlineExceeded), false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"conn done", fmt.Errorf("failed to commit: %w", sql.ErrConnDone), true},
		{"database closed", errors.New("failed to list roadmaps: sql: database is closed"), true},
		{"pool closed", errors.New("failed to get roadmap: closed pool"), true},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"already unavailable", ErrUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectionError(tt.err))
		})
	}
}

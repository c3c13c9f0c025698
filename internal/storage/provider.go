package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// Connector opens a ready-to-use repository
type Connector func(ctx context.Context) (Repository, error)

// Provider hands out the repository while the database is reachable. While it
// is not, Acquire fails fast with ErrUnavailable and a new connection attempt
// is made at most once per retry interval. Connection failures seen through an
// acquired repository put the provider back into that state.
type Provider struct {
	connect       Connector
	retryInterval time.Duration
	now           func() time.Time

	connected atomic.Bool

	mu          sync.Mutex
	repo        Repository
	connecting  bool
	closed      bool
	lastAttempt time.Time
	lastErr     error
}

// NewProvider creates a provider. No connection is made until the first Acquire.
func NewProvider(connect Connector, retryInterval time.Duration) *Provider {
	return &Provider{
		connect:       connect,
		retryInterval: retryInterval,
		now:           time.Now,
	}
}

// NewStaticProvider wraps an already connected repository. After a connection
// failure it only pings that repository again, it never reconnects.
func NewStaticProvider(repo Repository) *Provider {
	p := &Provider{repo: repo, now: time.Now}
	p.connected.Store(true)
	return p
}

// Acquire returns the repository or an error wrapping ErrUnavailable. The
// connection attempt runs outside the lock; callers arriving meanwhile get
// ErrUnavailable instead of waiting for it.
func (p *Provider) Acquire(ctx context.Context) (Repository, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, unavailable(errors.New("provider closed"))
	}
	if p.repo != nil && p.connected.Load() {
		repo := p.repo
		p.mu.Unlock()
		return &guardedRepository{Repository: repo, provider: p}, nil
	}

	now := p.now()
	if p.connecting || (!p.lastAttempt.IsZero() && now.Sub(p.lastAttempt) < p.retryInterval) {
		err := p.lastErr
		p.mu.Unlock()
		return nil, unavailable(err)
	}
	p.connecting = true
	p.lastAttempt = now
	stale := p.repo
	p.mu.Unlock()

	repo, err := p.reconnect(ctx, stale)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.connecting = false

	if p.closed {
		if repo != nil && repo != stale {
			repo.Close()
		}
		return nil, unavailable(errors.New("provider closed"))
	}

	p.repo = repo
	if err != nil {
		p.lastErr = err
		slog.Warn("database unavailable", "error", err, "retry_in", p.retryInterval.String())
		return nil, unavailable(err)
	}

	slog.Info("database connected")
	p.lastErr = nil
	p.connected.Store(true)
	return &guardedRepository{Repository: repo, provider: p}, nil
}

// reconnect revives stale when it answers a ping and otherwise replaces it
// with a new connection. A static provider keeps stale either way.
func (p *Provider) reconnect(ctx context.Context, stale Repository) (Repository, error) {
	if stale != nil {
		err := stale.Ping(ctx)
		if err == nil || p.connect == nil {
			return stale, err
		}
		slog.Warn("dropping stale database connection", "error", err)
		stale.Close()
	}
	if p.connect == nil {
		return nil, errors.New("no connector")
	}
	return p.connect(ctx)
}

// markUnavailable records a connection failure seen by a caller
func (p *Provider) markUnavailable(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected.Swap(false) {
		slog.Warn("database connection lost", "error", err)
	}
	p.lastErr = err
	p.lastAttempt = p.now()
}

// Connected reports whether the database was reachable on last contact
func (p *Provider) Connected() bool {
	return p.connected.Load()
}

// HealthCheck acquires the repository and pings it
func (p *Provider) HealthCheck(ctx context.Context) error {
	repo, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	return repo.Ping(ctx)
}

// Close closes the repository if one was acquired
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.connected.Store(false)
	if p.repo == nil {
		return nil
	}
	err := p.repo.Close()
	p.repo = nil
	return err
}

// guardedRepository turns connection failures into ErrUnavailable and reports
// them to its provider
type guardedRepository struct {
	Repository
	provider *Provider
}

func (g *guardedRepository) check(err error) error {
	if !IsConnectionError(err) {
		return err
	}
	g.provider.markUnavailable(err)
	return unavailable(err)
}

func (g *guardedRepository) CreateUser(ctx context.Context, u *models.User) error {
	return g.check(g.Repository.CreateUser(ctx, u))
}

func (g *guardedRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := g.Repository.GetUserByEmail(ctx, email)
	return u, g.check(err)
}

func (g *guardedRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := g.Repository.GetUserByID(ctx, id)
	return u, g.check(err)
}

func (g *guardedRepository) CreateRoadmap(ctx context.Context, rm *models.Roadmap) error {
	return g.check(g.Repository.CreateRoadmap(ctx, rm))
}

func (g *guardedRepository) GetRoadmap(ctx context.Context, id, userID string) (*models.Roadmap, error) {
	rm, err := g.Repository.GetRoadmap(ctx, id, userID)
	return rm, g.check(err)
}

func (g *guardedRepository) ListRoadmaps(ctx context.Context, filters models.RoadmapFilters) ([]*models.Roadmap, error) {
	list, err := g.Repository.ListRoadmaps(ctx, filters)
	return list, g.check(err)
}

func (g *guardedRepository) ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool, now time.Time) (*models.Roadmap, error) {
	rm, err := g.Repository.ToggleSkill(ctx, id, userID, skillName, completed, now)
	return rm, g.check(err)
}

func (g *guardedRepository) UpsertEvaluation(ctx context.Context, ev *models.Evaluation) error {
	return g.check(g.Repository.UpsertEvaluation(ctx, ev))
}

func (g *guardedRepository) ListEvaluations(ctx context.Context, userID string) ([]*EvaluatedRoadmap, error) {
	list, err := g.Repository.ListEvaluations(ctx, userID)
	return list, g.check(err)
}

func (g *guardedRepository) Ping(ctx context.Context) error {
	return g.check(g.Repository.Ping(ctx))
}

// Close is a no-op; the provider owns the repository
func (g *guardedRepository) Close() error {
	return nil
}

// PostgresConnector connects to PostgreSQL and applies pending migrations
func PostgresConnector(cfg PostgresConfig, migrations fs.FS, timeout time.Duration) Connector {
	return func(ctx context.Context) (Repository, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		repo, err := NewPostgresRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}

		if err := RunMigrations(ctx, repo.Pool(), migrations); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		return repo, nil
	}
}

// SQLiteConnector opens a SQLite database at path
func SQLiteConnector(path string) Connector {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLiteRepository(ctx, path)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository opens a pool and verifies it with a ping
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = orDefault(cfg.MaxOpenConns, 25)
	poolConfig.MinConns = min(orDefault(cfg.MaxIdleConns, 5), poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = orDefault(cfg.MaxLifetime, 30*time.Minute)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func orDefault[T int32 | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser creates a new user record
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, strings.ToLower(email))
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users ` + where

	var u models.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

const pgRoadmapColumns = `id, user_id, user_summary, job_suggestions, skills_analysis, phases, progress, created_at`

// CreateRoadmap creates a new roadmap record
func (r *PostgresRepository) CreateRoadmap(ctx context.Context, rm *models.Roadmap) error {
	cols, err := encodeRoadmap(rm)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO roadmaps (id, user_id, user_summary, job_suggestions, skills_analysis, phases, progress, progress_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		rm.ID,
		rm.UserID,
		cols.UserSummary,
		cols.JobSuggestions,
		cols.SkillsAnalysis,
		cols.Phases,
		cols.Progress,
		rm.Progress.LastUpdated,
		rm.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create roadmap: %w", err)
	}

	return nil
}

// GetRoadmap retrieves a roadmap by ID, scoped to its owner
func (r *PostgresRepository) GetRoadmap(ctx context.Context, id, userID string) (*models.Roadmap, error) {
	query := `SELECT ` + pgRoadmapColumns + ` FROM roadmaps WHERE id = $1 AND user_id = $2`

	rm, err := scanPgRoadmap(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}

	return rm, nil
}

// ListRoadmaps returns roadmaps matching filters
func (r *PostgresRepository) ListRoadmaps(ctx context.Context, filters models.RoadmapFilters) ([]*models.Roadmap, error) {
	query := `SELECT ` + pgRoadmapColumns + ` FROM roadmaps WHERE user_id = $1`
	args := []interface{}{filters.UserID}

	if filters.OrderByCreated {
		query += " ORDER BY created_at DESC"
	} else {
		query += " ORDER BY progress_updated_at DESC NULLS LAST, created_at DESC"
	}

	if filters.Limit > 0 {
		query += " LIMIT $2"
		args = append(args, filters.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	roadmaps := make([]*models.Roadmap, 0)
	for rows.Next() {
		rm, err := scanPgRoadmap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, rm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roadmaps: %w", err)
	}

	return roadmaps, nil
}

// ToggleSkill locks the owner's roadmap row, applies the toggle and writes
// the checklist with its aggregates in the same transaction.
func (r *PostgresRepository) ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool, now time.Time) (*models.Roadmap, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + pgRoadmapColumns + ` FROM roadmaps WHERE id = $1 AND user_id = $2 FOR UPDATE`

	rm, err := scanPgRoadmap(tx.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to lock roadmap: %w", err)
	}

	rm.Progress.Toggle(skillName, completed, now)

	progressJSON, err := encodeProgress(rm.Progress)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE roadmaps SET progress = $3, progress_updated_at = $4 WHERE id = $1 AND user_id = $2`,
		id, userID, progressJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit progress: %w", err)
	}

	return rm, nil
}

// UpsertEvaluation creates or replaces the evaluation of a roadmap
func (r *PostgresRepository) UpsertEvaluation(ctx context.Context, ev *models.Evaluation) error {
	query := `
		INSERT INTO evaluations (roadmap_id, completion_rate, total_skills, completed_skills_count, status, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (roadmap_id) DO UPDATE
		SET completion_rate = EXCLUDED.completion_rate,
		    total_skills = EXCLUDED.total_skills,
		    completed_skills_count = EXCLUDED.completed_skills_count,
		    status = EXCLUDED.status,
		    last_updated = EXCLUDED.last_updated
	`

	_, err := r.pool.Exec(ctx, query,
		ev.RoadmapID,
		ev.CompletionRate,
		ev.TotalSkills,
		ev.CompletedSkillsCount,
		string(ev.Status),
		ev.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}

	return nil
}

// ListEvaluations returns the cached evaluations of a user's roadmaps
func (r *PostgresRepository) ListEvaluations(ctx context.Context, userID string) ([]*EvaluatedRoadmap, error) {
	query := `
		SELECT e.roadmap_id, e.completion_rate, e.total_skills, e.completed_skills_count, e.status, e.last_updated,
		       r.id, r.user_id, r.user_summary, r.job_suggestions, r.skills_analysis, r.phases, r.progress, r.created_at
		FROM evaluations e
		JOIN roadmaps r ON r.id = e.roadmap_id
		WHERE r.user_id = $1
		ORDER BY e.last_updated DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	result := make([]*EvaluatedRoadmap, 0)
	for rows.Next() {
		var ev models.Evaluation
		var status string
		var rm models.Roadmap
		var cols roadmapColumns

		err := rows.Scan(
			&ev.RoadmapID,
			&ev.CompletionRate,
			&ev.TotalSkills,
			&ev.CompletedSkillsCount,
			&status,
			&ev.LastUpdated,
			&rm.ID,
			&rm.UserID,
			&cols.UserSummary,
			&cols.JobSuggestions,
			&cols.SkillsAnalysis,
			&cols.Phases,
			&cols.Progress,
			&rm.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		ev.Status = models.EvaluationStatus(status)
		if err := decodeRoadmap(&rm, &cols); err != nil {
			return nil, err
		}

		result = append(result, &EvaluatedRoadmap{Evaluation: &ev, Roadmap: &rm})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return result, nil
}

// scanPgRoadmap scans a row selected with pgRoadmapColumns
func scanPgRoadmap(row pgx.Row) (*models.Roadmap, error) {
	var rm models.Roadmap
	var cols roadmapColumns

	err := row.Scan(
		&rm.ID,
		&rm.UserID,
		&cols.UserSummary,
		&cols.JobSuggestions,
		&cols.SkillsAnalysis,
		&cols.Phases,
		&cols.Progress,
		&rm.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeRoadmap(&rm, &cols); err != nil {
		return nil, err
	}

	return &rm, nil
}

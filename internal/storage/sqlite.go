package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/roadmap-engine/internal/models"
)

// sqliteSchema mirrors migrations/001_init.sql. Timestamps are unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS roadmaps (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user_summary        TEXT NOT NULL,
    job_suggestions     TEXT NOT NULL DEFAULT '[]',
    skills_analysis     TEXT NOT NULL DEFAULT '{}',
    phases              TEXT NOT NULL DEFAULT '[]',
    progress            TEXT NOT NULL DEFAULT '{"skills": []}',
    progress_updated_at INTEGER,
    role                TEXT GENERATED ALWAYS AS (json_extract(user_summary, '$.role')) VIRTUAL,
    education           TEXT GENERATED ALWAYS AS (json_extract(user_summary, '$.education')) VIRTUAL,
    created_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_roadmaps_user_created ON roadmaps (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS evaluations (
    roadmap_id             TEXT PRIMARY KEY REFERENCES roadmaps(id) ON DELETE CASCADE,
    completion_rate        INTEGER NOT NULL DEFAULT 0,
    total_skills           INTEGER NOT NULL DEFAULT 0,
    completed_skills_count INTEGER NOT NULL DEFAULT 0,
    status                 TEXT NOT NULL DEFAULT 'Just Started',
    last_updated           INTEGER NOT NULL
);
`

// SQLiteRepository implements Repository on an embedded SQLite database.
// A single connection serializes writers, which makes every transaction atomic
// with respect to concurrent toggles.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at path (":memory:" for an in-memory
// database) and applies the schema.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping checks database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateUser creates a new user record
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, toMillis(u.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = ?`, strings.ToLower(email))
}

// GetUserByID retrieves a user by ID
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = ?`, id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where, arg string) (*models.User, error) {
	var u models.User
	var createdAt int64

	err := r.db.QueryRowContext(ctx, `SELECT id, name, email, password_hash, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

const sqliteRoadmapColumns = `id, user_id, user_summary, job_suggestions, skills_analysis, phases, progress, created_at`

// CreateRoadmap creates a new roadmap record
func (r *SQLiteRepository) CreateRoadmap(ctx context.Context, rm *models.Roadmap) error {
	cols, err := encodeRoadmap(rm)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO roadmaps (id, user_id, user_summary, job_suggestions, skills_analysis, phases, progress, progress_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rm.ID,
		rm.UserID,
		string(cols.UserSummary),
		string(cols.JobSuggestions),
		string(cols.SkillsAnalysis),
		string(cols.Phases),
		string(cols.Progress),
		nullMillis(rm.Progress.LastUpdated),
		toMillis(rm.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create roadmap: %w", err)
	}

	return nil
}

// GetRoadmap retrieves a roadmap by ID, scoped to its owner
func (r *SQLiteRepository) GetRoadmap(ctx context.Context, id, userID string) (*models.Roadmap, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteRoadmapColumns+` FROM roadmaps WHERE id = ? AND user_id = ?`, id, userID)

	rm, err := scanSQLiteRoadmap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}

	return rm, nil
}

// ListRoadmaps returns roadmaps matching filters
func (r *SQLiteRepository) ListRoadmaps(ctx context.Context, filters models.RoadmapFilters) ([]*models.Roadmap, error) {
	query := `SELECT ` + sqliteRoadmapColumns + ` FROM roadmaps WHERE user_id = ?`
	args := []interface{}{filters.UserID}

	if filters.OrderByCreated {
		query += " ORDER BY created_at DESC"
	} else {
		query += " ORDER BY progress_updated_at IS NULL, progress_updated_at DESC, created_at DESC"
	}

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	roadmaps := make([]*models.Roadmap, 0)
	for rows.Next() {
		rm, err := scanSQLiteRoadmap(rows)
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

// ToggleSkill reads, toggles and writes the checklist inside one transaction
func (r *SQLiteRepository) ToggleSkill(ctx context.Context, id, userID, skillName string, completed bool, now time.Time) (*models.Roadmap, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+sqliteRoadmapColumns+` FROM roadmaps WHERE id = ? AND user_id = ?`, id, userID)
	rm, err := scanSQLiteRoadmap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to load roadmap: %w", err)
	}

	rm.Progress.Toggle(skillName, completed, now)

	progressJSON, err := encodeProgress(rm.Progress)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE roadmaps SET progress = ?, progress_updated_at = ? WHERE id = ? AND user_id = ?`,
		string(progressJSON), toMillis(now), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit progress: %w", err)
	}

	return rm, nil
}

// UpsertEvaluation creates or replaces the evaluation of a roadmap
func (r *SQLiteRepository) UpsertEvaluation(ctx context.Context, ev *models.Evaluation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluations (roadmap_id, completion_rate, total_skills, completed_skills_count, status, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (roadmap_id) DO UPDATE
		SET completion_rate = excluded.completion_rate,
		    total_skills = excluded.total_skills,
		    completed_skills_count = excluded.completed_skills_count,
		    status = excluded.status,
		    last_updated = excluded.last_updated`,
		ev.RoadmapID,
		ev.CompletionRate,
		ev.TotalSkills,
		ev.CompletedSkillsCount,
		string(ev.Status),
		toMillis(ev.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns the cached evaluations of a user's roadmaps
func (r *SQLiteRepository) ListEvaluations(ctx context.Context, userID string) ([]*EvaluatedRoadmap, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.roadmap_id, e.completion_rate, e.total_skills, e.completed_skills_count, e.status, e.last_updated,
		       r.id, r.user_id, r.user_summary, r.job_suggestions, r.skills_analysis, r.phases, r.progress, r.created_at
		FROM evaluations e
		JOIN roadmaps r ON r.id = e.roadmap_id
		WHERE r.user_id = ?
		ORDER BY e.last_updated DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	result := make([]*EvaluatedRoadmap, 0)
	for rows.Next() {
		var ev models.Evaluation
		var status string
		var lastUpdated, createdAt int64
		var rm models.Roadmap
		var summary, jobs, analysis, phases, progress string

		err := rows.Scan(
			&ev.RoadmapID, &ev.CompletionRate, &ev.TotalSkills, &ev.CompletedSkillsCount, &status, &lastUpdated,
			&rm.ID, &rm.UserID, &summary, &jobs, &analysis, &phases, &progress, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		ev.Status = models.EvaluationStatus(status)
		ev.LastUpdated = fromMillis(lastUpdated)
		rm.CreatedAt = fromMillis(createdAt)

		cols := &roadmapColumns{
			UserSummary:    []byte(summary),
			JobSuggestions: []byte(jobs),
			SkillsAnalysis: []byte(analysis),
			Phases:         []byte(phases),
			Progress:       []byte(progress),
		}
		if err := decodeRoadmap(&rm, cols); err != nil {
			return nil, err
		}

		result = append(result, &EvaluatedRoadmap{Evaluation: &ev, Roadmap: &rm})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return result, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteRoadmap scans a row selected with sqliteRoadmapColumns
func scanSQLiteRoadmap(row sqlScanner) (*models.Roadmap, error) {
	var rm models.Roadmap
	var summary, jobs, analysis, phases, progress string
	var createdAt int64

	if err := row.Scan(&rm.ID, &rm.UserID, &summary, &jobs, &analysis, &phases, &progress, &createdAt); err != nil {
		return nil, err
	}

	rm.CreatedAt = fromMillis(createdAt)
	cols := &roadmapColumns{
		UserSummary:    []byte(summary),
		JobSuggestions: []byte(jobs),
		SkillsAnalysis: []byte(analysis),
		Phases:         []byte(phases),
		Progress:       []byte(progress),
	}
	if err := decodeRoadmap(&rm, cols); err != nil {
		return nil, err
	}

	return &rm, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

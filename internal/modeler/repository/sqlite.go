package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"plan-modeler/internal/modeler/models"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS models (
    id            TEXT PRIMARY KEY,
    floors        INTEGER NOT NULL,
    openings      INTEGER NOT NULL,
    is_multistory INTEGER NOT NULL,
    body          TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS artifacts (
    model_id   TEXT NOT NULL REFERENCES models(id) ON DELETE CASCADE,
    backend    TEXT NOT NULL,
    object_key TEXT NOT NULL,
    size       INTEGER NOT NULL,
    problems   INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (model_id, backend)
);
`

// ModelRepository persists reconstructed models and the artifacts built
// from them.
type ModelRepository interface {
	Create(ctx context.Context, m *models.Model) error
	FindByID(ctx context.Context, id string) (*models.Model, error)
	Delete(ctx context.Context, id string) error
	SaveArtifact(ctx context.Context, a *Artifact) error
	ListArtifacts(ctx context.Context, modelID string) ([]Artifact, error)
	Ping(ctx context.Context) error
}

// Artifact is a stored solid export of a model.
type Artifact struct {
	ModelID   string    `json:"model_id"`
	Backend   string    `json:"backend"`
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Problems  int       `json:"problems"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ ModelRepository = (*Repository)(nil)

// Init creates the tables when missing.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, m *models.Model) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("model id required")
	}

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO models (id, floors, openings, is_multistory, body, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, m.ID, len(m.Floors), len(m.Openings), m.IsMultistory, string(body), r.now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Model, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT body
        FROM models
        WHERE id = ?
    `, id)

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var m models.Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", id, err)
	}
	m.ID = id
	return &m, nil
}

// Delete removes a model and its artifact rows. Deleting a missing model
// returns ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM artifacts WHERE model_id = ?`, id); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================
// Artifacts
// ============================================================

// SaveArtifact records an artifact, replacing an earlier one for the same
// model and backend.
func (r *Repository) SaveArtifact(ctx context.Context, a *Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO artifacts (model_id, backend, object_key, size, problems, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, a.ModelID, a.Backend, a.Key, a.Size, a.Problems, a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

func (r *Repository) ListArtifacts(ctx context.Context, modelID string) ([]Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT model_id, backend, object_key, size, problems, created_at
        FROM artifacts
        WHERE model_id = ?
        ORDER BY backend
    `, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Artifact, 0)
	for rows.Next() {
		var (
			a       Artifact
			created string
		)
		if err := rows.Scan(&a.ModelID, &a.Backend, &a.Key, &a.Size, &a.Problems, &created); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("artifact created_at: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// OpenSQLite opens the sqlite database at dbPath, creating its directory.
// The caller must import the ncruces driver.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// MirroredEmbedding is one face embedding row in the PostgreSQL mirror.
type MirroredEmbedding struct {
	FaceID    uint
	PhotoID   string
	Embedding []float32
	Model     string
	Dim       int
	CreatedAt time.Time
}

// EmbeddingMirror keeps an optional PostgreSQL/pgvector copy of the face
// embeddings next to the SQLite source of truth. It exists for ad-hoc
// similarity queries at SQL level; the clustering pipeline never reads from
// it. The mirror is enabled only when a Postgres DSN is configured.
type EmbeddingMirror struct {
	db *sql.DB
}

// NewEmbeddingMirror opens the mirror connection and verifies it.
func NewEmbeddingMirror(dsn string) (*EmbeddingMirror, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding mirror: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping embedding mirror: %w", err)
	}

	return &EmbeddingMirror{db: db}, nil
}

// Migrate creates the vector extension and the mirror table.
func (m *EmbeddingMirror) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS face_embeddings (
			face_id BIGINT PRIMARY KEY,
			photo_id TEXT NOT NULL,
			embedding vector(128) NOT NULL,
			model TEXT NOT NULL,
			dim INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS face_embeddings_photo_idx ON face_embeddings (photo_id)`,
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate embedding mirror: %w", err)
		}
	}
	return nil
}

// Close closes the mirror connection.
func (m *EmbeddingMirror) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Save upserts one face embedding into the mirror.
func (m *EmbeddingMirror) Save(ctx context.Context, emb MirroredEmbedding) error {
	query := `
		INSERT INTO face_embeddings (face_id, photo_id, embedding, model, dim)
		VALUES ($1, $2, $3::vector, $4, $5)
		ON CONFLICT (face_id) DO UPDATE SET
			photo_id = EXCLUDED.photo_id,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`
	vec := pgvector.NewVector(emb.Embedding)
	_, err := m.db.ExecContext(ctx, query, int64(emb.FaceID), emb.PhotoID, vec, emb.Model, emb.Dim)
	if err != nil {
		return fmt.Errorf("failed to mirror embedding for face %d: %w", emb.FaceID, err)
	}
	return nil
}

// SaveBatch upserts a batch of embeddings in a single transaction.
func (m *EmbeddingMirror) SaveBatch(ctx context.Context, embs []MirroredEmbedding) error {
	if len(embs) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin mirror transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO face_embeddings (face_id, photo_id, embedding, model, dim)
		VALUES ($1, $2, $3::vector, $4, $5)
		ON CONFLICT (face_id) DO UPDATE SET
			photo_id = EXCLUDED.photo_id,
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mirror statement: %w", err)
	}
	defer stmt.Close()

	for _, emb := range embs {
		vec := pgvector.NewVector(emb.Embedding)
		if _, err := stmt.ExecContext(ctx, int64(emb.FaceID), emb.PhotoID, vec, emb.Model, emb.Dim); err != nil {
			return fmt.Errorf("failed to mirror embedding for face %d: %w", emb.FaceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mirror batch: %w", err)
	}
	return nil
}

// Get retrieves one mirrored embedding, or nil when the face has none.
func (m *EmbeddingMirror) Get(ctx context.Context, faceID uint) (*MirroredEmbedding, error) {
	query := `
		SELECT face_id, photo_id, embedding, model, dim, created_at
		FROM face_embeddings
		WHERE face_id = $1
	`

	var emb MirroredEmbedding
	var id int64
	var vec pgvector.Vector
	err := m.db.QueryRowContext(ctx, query, int64(faceID)).Scan(
		&id, &emb.PhotoID, &vec, &emb.Model, &emb.Dim, &emb.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mirrored embedding for face %d: %w", faceID, err)
	}

	emb.FaceID = uint(id)
	emb.Embedding = vec.Slice()
	return &emb, nil
}

// FindSimilar returns the closest mirrored embeddings by L2 distance,
// excluding the query face itself.
func (m *EmbeddingMirror) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]MirroredEmbedding, []float64, error) {
	query := `
		SELECT face_id, photo_id, embedding, model, dim, created_at,
		       embedding <-> $1::vector AS distance
		FROM face_embeddings
		ORDER BY distance
		LIMIT $2
	`

	vec := pgvector.NewVector(embedding)
	rows, err := m.db.QueryContext(ctx, query, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query similar embeddings: %w", err)
	}
	defer rows.Close()

	var embs []MirroredEmbedding
	var distances []float64
	for rows.Next() {
		var emb MirroredEmbedding
		var id int64
		var v pgvector.Vector
		var dist float64
		if err := rows.Scan(&id, &emb.PhotoID, &v, &emb.Model, &emb.Dim, &emb.CreatedAt, &dist); err != nil {
			return nil, nil, fmt.Errorf("failed to scan mirrored embedding: %w", err)
		}
		emb.FaceID = uint(id)
		emb.Embedding = v.Slice()
		embs = append(embs, emb)
		distances = append(distances, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate mirrored embeddings: %w", err)
	}
	return embs, distances, nil
}

// CountByPhotoIDs returns how many mirrored embeddings belong to the given
// photos.
func (m *EmbeddingMirror) CountByPhotoIDs(ctx context.Context, photoIDs []string) (int, error) {
	if len(photoIDs) == 0 {
		return 0, nil
	}
	var count int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM face_embeddings WHERE photo_id = ANY($1)",
		pq.Array(photoIDs)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count mirrored embeddings: %w", err)
	}
	return count, nil
}

// DeleteByFaceID removes one face's mirrored embedding.
func (m *EmbeddingMirror) DeleteByFaceID(ctx context.Context, faceID uint) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM face_embeddings WHERE face_id = $1", int64(faceID)); err != nil {
		return fmt.Errorf("failed to delete mirrored embedding for face %d: %w", faceID, err)
	}
	return nil
}

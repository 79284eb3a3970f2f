package index

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/cliofer/docchat/models"
)

// Postgres implements Index on pgvector columns. One row per fragment, primary
// key (collection, document_id, ordinal); cosine distance via the <=> operator.
type Postgres struct {
	DB *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if collection == "" {
		return fmt.Errorf("collection name required")
	}
	if dimensions <= 0 {
		return fmt.Errorf("dimensions must be > 0")
	}
	_, err := p.DB.ExecContext(ctx, `
INSERT INTO collections (name, dimensions) VALUES ($1,$2)
ON CONFLICT (name) DO NOTHING;
`, collection, dimensions)
	if err != nil {
		return fmt.Errorf("%w: ensure collection: %v", ErrUnavailable, err)
	}
	existing, err := p.collectionDimensions(ctx, collection)
	if err != nil {
		return err
	}
	if existing != dimensions {
		return fmt.Errorf("%w: collection %q holds %d-dimensional vectors, embedder produces %d", ErrDimensionMismatch, collection, existing, dimensions)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, collection string, entries []Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	dims, err := p.collectionDimensions(ctx, collection)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Vector) != dims {
			return fmt.Errorf("%w: collection %q expects %d dimensions, got %d for fragment %d of document %s",
				ErrDimensionMismatch, collection, dims, len(e.Vector), e.Fragment.Ordinal, e.Fragment.DocumentID)
		}
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO fragments (collection, document_id, ordinal, fragment_count, file_name, content, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7::vector,NOW())
ON CONFLICT (collection, document_id, ordinal) DO UPDATE SET
  fragment_count = EXCLUDED.fragment_count,
  file_name = EXCLUDED.file_name,
  content = EXCLUDED.content,
  embedding = EXCLUDED.embedding,
  created_at = NOW();
`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", ErrUnavailable, err)
	}
	defer stmt.Close()

	counts := map[string]int{}
	for _, e := range entries {
		f := e.Fragment
		vectorLiteral, encErr := encodeVectorLiteral(e.Vector)
		if encErr != nil {
			err = encErr
			return err
		}
		if _, err = stmt.ExecContext(ctx, collection, f.DocumentID, f.Ordinal, f.FragmentCount, f.FileName, f.Content, vectorLiteral); err != nil {
			err = fmt.Errorf("%w: upsert fragment %d of document %s: %v", ErrUnavailable, f.Ordinal, f.DocumentID, err)
			return err
		}
		if f.FragmentCount > counts[f.DocumentID] {
			counts[f.DocumentID] = f.FragmentCount
		}
	}
	// a shorter re-ingest must not leave stale tail fragments behind
	for documentID, count := range counts {
		if _, err = tx.ExecContext(ctx, `DELETE FROM fragments WHERE collection=$1 AND document_id=$2 AND ordinal >= $3`, collection, documentID, count); err != nil {
			err = fmt.Errorf("%w: trim stale fragments of document %s: %v", ErrUnavailable, documentID, err)
			return err
		}
	}
	return err
}

func (p *Postgres) Search(ctx context.Context, collection, documentID string, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := p.DB.QueryContext(ctx, `
SELECT document_id, ordinal, fragment_count, file_name, content, embedding <=> $1::vector AS distance
FROM fragments
WHERE collection = $2 AND ($3 = '' OR document_id = $3)
ORDER BY embedding <=> $1::vector
LIMIT $4
`, vecLiteral, collection, documentID, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			f        models.Fragment
			distance float64
		)
		if err := rows.Scan(&f.DocumentID, &f.Ordinal, &f.FragmentCount, &f.FileName, &f.Content, &distance); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		hits = append(hits, Hit{Fragment: f, Similarity: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}
	return hits, nil
}

func (p *Postgres) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document id required")
	}
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM fragments WHERE collection=$1 AND document_id=$2`, collection, documentID); err != nil {
		return fmt.Errorf("%w: delete by document: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) collectionDimensions(ctx context.Context, collection string) (int, error) {
	var dims int
	err := p.DB.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name=$1`, collection).Scan(&dims)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %q not initialised", collection)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read collection: %v", ErrUnavailable, err)
	}
	return dims, nil
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

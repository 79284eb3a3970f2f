package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cliofer/docchat/models"
)

// Store persists documents and chat history in Postgres. Chat history is
// append-only; documents are soft-deleted and later purged from the vector
// index by the janitor.
type Store struct {
	DB *sql.DB
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// CreateDocument inserts a freshly uploaded document.
func (s *Store) CreateDocument(ctx context.Context, doc models.Document) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO documents (id, user_id, file_name, content, fragment_count, uploaded_at)
VALUES ($1,$2,$3,$4,$5,NOW());
`, doc.ID, doc.UserID, doc.FileName, doc.Content, doc.FragmentCount)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// UpdateFragmentCount records how many fragments the indexing pipeline produced.
func (s *Store) UpdateFragmentCount(ctx context.Context, documentID string, count int) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE documents SET fragment_count=$2 WHERE id=$1`, documentID, count)
	if err != nil {
		return fmt.Errorf("update fragment count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// GetDocument returns a live (not soft-deleted) document owned by the user.
func (s *Store) GetDocument(ctx context.Context, userID, documentID string) (models.Document, error) {
	var doc models.Document
	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, file_name, content, fragment_count, uploaded_at
FROM documents
WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
`, documentID, userID).Scan(&doc.ID, &doc.UserID, &doc.FileName, &doc.Content, &doc.FragmentCount, &doc.UploadedAt)
	if err == sql.ErrNoRows {
		return models.Document{}, models.ErrDocumentNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the user's live documents, newest first, without content.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, file_name, fragment_count, uploaded_at
FROM documents
WHERE user_id=$1 AND deleted_at IS NULL
ORDER BY uploaded_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.FileName, &doc.FragmentCount, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// SoftDeleteDocument marks the document deleted. Fragments stay in the vector
// index until the caller cascades the purge.
func (s *Store) SoftDeleteDocument(ctx context.Context, userID, documentID string) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE documents SET deleted_at=NOW() WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
`, documentID, userID)
	if err != nil {
		return fmt.Errorf("soft delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrDocumentNotFound
	}
	return nil
}

// ListPurgeable returns ids of documents soft-deleted at least grace ago whose
// fragments are still in the vector index.
func (s *Store) ListPurgeable(ctx context.Context, grace time.Duration) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id FROM documents
WHERE deleted_at IS NOT NULL AND deleted_at <= NOW() - $1::interval AND NOT index_purged
`, fmt.Sprintf("%d seconds", int64(grace.Seconds())))
	if err != nil {
		return nil, fmt.Errorf("list purgeable: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purgeable: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkIndexPurged records that the document's fragments left the vector index.
func (s *Store) MarkIndexPurged(ctx context.Context, documentID string) error {
	if _, err := s.DB.ExecContext(ctx, `UPDATE documents SET index_purged=TRUE WHERE id=$1`, documentID); err != nil {
		return fmt.Errorf("mark index purged: %w", err)
	}
	return nil
}

// AppendMessage appends one chat turn.
func (s *Store) AppendMessage(ctx context.Context, userID, documentID string, role models.Role, content string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO chat_messages (user_id, document_id, role, content, created_at)
VALUES ($1,$2,$3,$4,NOW());
`, userID, documentID, string(role), content)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// AppendExchange appends the user message and the assistant reply in one
// transaction, so a cancelled or failed turn never leaves half a conversation.
func (s *Store) AppendExchange(ctx context.Context, userID, documentID, userMessage, assistantReply string) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exchange: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	const insert = `
INSERT INTO chat_messages (user_id, document_id, role, content, created_at)
VALUES ($1,$2,$3,$4,NOW());
`
	if _, err = tx.ExecContext(ctx, insert, userID, documentID, string(models.RoleUser), userMessage); err != nil {
		err = fmt.Errorf("append user message: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, insert, userID, documentID, string(models.RoleAssistant), assistantReply); err != nil {
		err = fmt.Errorf("append assistant message: %w", err)
		return err
	}
	return err
}

// ReadHistory returns the conversation for (user, document) oldest first.
func (s *Store) ReadHistory(ctx context.Context, userID, documentID string) ([]models.Message, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, document_id, role, content, created_at
FROM chat_messages
WHERE user_id=$1 AND document_id=$2
ORDER BY created_at ASC, id ASC
`, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()
	var history []models.Message
	for rows.Next() {
		var (
			m    models.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.DocumentID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		history = append(history, m)
	}
	return history, rows.Err()
}

// EnsureGreeting inserts the assistant greeting as the first message of a
// conversation that has none yet. Reports whether a greeting was written.
func (s *Store) EnsureGreeting(ctx context.Context, userID, documentID, greeting string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
INSERT INTO chat_messages (user_id, document_id, role, content, created_at)
SELECT $1, $2, 'assistant', $3, NOW()
WHERE NOT EXISTS (
  SELECT 1 FROM chat_messages WHERE user_id=$1 AND document_id=$2
);
`, userID, documentID, greeting)
	if err != nil {
		return false, fmt.Errorf("ensure greeting: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

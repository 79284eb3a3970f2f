package models

import (
	"errors"
	"time"
)

// ErrDocumentNotFound is returned when a document does not exist or is deleted
var ErrDocumentNotFound = errors.New("document not found")

// ErrEmbedding marks failures of the embedding backend (network, rate limit,
// rejected input). Batch embedding calls are all-or-nothing: no partial vectors.
var ErrEmbedding = errors.New("embedding failed")

// ErrCompletion marks failures of the completion backend. Callers surface it
// instead of fabricating an answer.
var ErrCompletion = errors.New("completion failed")

// Document is an uploaded file whose extracted text has been indexed for retrieval.
type Document struct {
	ID            string     `json:"document_id"`
	UserID        string     `json:"user_id"`
	FileName      string     `json:"file_name"`
	Content       string     `json:"-"`
	FragmentCount int        `json:"fragment_count"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	DeletedAt     *time.Time `json:"-"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation, append-only and ordered by CreatedAt.
type Message struct {
	ID         int64     `json:"id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"timestamp"`
}

// Fragment is a bounded slice of a document's text produced at indexing time.
// Ordinal is zero-based and always < FragmentCount; all fragments from one
// indexing run share FragmentCount.
type Fragment struct {
	DocumentID    string `json:"document_id"`
	FileName      string `json:"file_name"`
	Ordinal       int    `json:"ordinal"`
	FragmentCount int    `json:"fragment_count"`
	Content       string `json:"content"`
}

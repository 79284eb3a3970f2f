package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/models"
	"github.com/cliofer/docchat/provider"
)

// Service orchestrates chunking, embedding, indexing and retrieval. One
// instance is built at process start and shared across requests; all blocking
// work goes through the injected provider and index, which carry their own
// timeouts and locking.
type Service struct {
	splitter *Splitter
	provider provider.Provider
	index    index.Index
	cfg      config.RAGConfig
	logger   *log.Logger
}

// NewService wires the pipeline. The collection is created (or verified against
// the configured dimensionality) up front so a swapped embedder fails at boot,
// not at first upload.
func NewService(ctx context.Context, p provider.Provider, idx index.Index, cfg config.RAGConfig, logger *log.Logger) (*Service, error) {
	splitter, err := NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RAG] ", log.LstdFlags)
	}
	if err := idx.EnsureCollection(ctx, cfg.Collection, cfg.EmbeddingDims); err != nil {
		return nil, err
	}
	return &Service{
		splitter: splitter,
		provider: p,
		index:    idx,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Ingest chunks a document's text, embeds all chunks in one batch and commits
// them to the index. Returns the fragment count. Empty text returns 0 without
// touching the index. Re-ingesting the same document replaces its fragments.
func (s *Service) Ingest(ctx context.Context, documentID, fileName, text string) (int, error) {
	if documentID == "" {
		return 0, fmt.Errorf("document id required")
	}
	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.provider.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks of document %s: %w", len(chunks), documentID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: expected %d vectors, got %d", models.ErrEmbedding, len(chunks), len(vectors))
	}

	entries := make([]index.Entry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = index.Entry{
			Fragment: models.Fragment{
				DocumentID:    documentID,
				FileName:      fileName,
				Ordinal:       i,
				FragmentCount: len(chunks),
				Content:       chunk,
			},
			Vector: vectors[i],
		}
	}
	if err := s.index.Upsert(ctx, s.cfg.Collection, entries); err != nil {
		return 0, fmt.Errorf("index document %s: %w", documentID, err)
	}
	return len(chunks), nil
}

// Retrieve embeds the query and returns the top-k nearest fragments, highest
// similarity first. documentID scopes the search when document scoping is
// enabled. Retrieval is best-effort: every failure is logged and an empty
// result returned, so a chat turn proceeds with degraded context instead of
// failing outright.
func (s *Service) Retrieve(ctx context.Context, query, documentID string, k int) []index.Hit {
	if k <= 0 {
		k = s.cfg.TopK
	}
	scope := ""
	if s.cfg.ScopeToDocument {
		scope = documentID
	}

	vectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		s.logger.Printf("warn: query embedding failed, answering without context: %v", err)
		return nil
	}
	hits, err := s.index.Search(ctx, s.cfg.Collection, scope, vectors[0], k)
	if err != nil {
		s.logger.Printf("warn: vector search failed, answering without context: %v", err)
		return nil
	}
	return hits
}

// RetrieveAndAssemble runs the retrieval pipeline and renders the full model
// prompt: persona, document context, conversation history, new user message.
func (s *Service) RetrieveAndAssemble(ctx context.Context, persona string, history []models.Message, userMessage string, documentID string) string {
	hits := s.Retrieve(ctx, userMessage, documentID, s.cfg.TopK)
	return Assemble(persona, hits, history, userMessage, AssembleLimits{
		MaxHistoryTurns:  s.cfg.MaxHistoryTurns,
		MaxContextChunks: s.cfg.MaxContextChunks,
	})
}

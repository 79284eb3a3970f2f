package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/rag"
	"github.com/cliofer/docchat/internal/store"
	"github.com/cliofer/docchat/models"
	"github.com/cliofer/docchat/provider"
)

// ChatHandler answers document-grounded chat turns.
type ChatHandler struct {
	Store     *store.Store
	Cache     *store.HistoryCache
	RAG       *rag.Service
	LLM       provider.Provider
	Assistant config.AssistantConfig
	Limits    rag.AssembleLimits
	TopK      int
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
	g.GET("/chat/history", h.history)
}

type chatRequest struct {
	UserID     string `json:"user_id"`
	DocumentID string `json:"document_id"`
	Message    string `json:"message"`
}

// chat runs one turn: greeting bootstrap, history read, retrieval, prompt
// assembly, completion, then both messages appended in one transaction. A
// failed completion appends nothing and surfaces as an explicit error.
func (h *ChatHandler) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" || req.DocumentID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, document_id and message required")
	}
	ctx := c.Request().Context()

	if _, err := h.Store.GetDocument(ctx, req.UserID, req.DocumentID); err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if inserted, err := h.Store.EnsureGreeting(ctx, req.UserID, req.DocumentID, h.Assistant.GreetingText()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	} else if inserted {
		h.Cache.Invalidate(ctx, req.UserID, req.DocumentID)
	}

	history, cached := h.Cache.Get(ctx, req.UserID, req.DocumentID)
	if !cached {
		var err error
		history, err = h.Store.ReadHistory(ctx, req.UserID, req.DocumentID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.Cache.Set(ctx, req.UserID, req.DocumentID, history)
	}

	hits := h.RAG.Retrieve(ctx, req.Message, req.DocumentID, h.TopK)
	if len(hits) == 0 {
		contextlessTurns.Inc()
	}
	prompt := rag.Assemble(h.Assistant.PersonaText(), hits, history, req.Message, h.Limits)

	started := time.Now()
	answer, err := h.LLM.Complete(ctx, prompt)
	completionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "completion failed: "+err.Error())
	}

	if err := h.Store.AppendExchange(ctx, req.UserID, req.DocumentID, req.Message, answer); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Cache.Invalidate(ctx, req.UserID, req.DocumentID)
	chatTurns.Inc()

	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}

// history returns the conversation for (user, document), oldest first.
func (h *ChatHandler) history(c echo.Context) error {
	userID := c.QueryParam("user_id")
	documentID := c.QueryParam("document_id")
	if userID == "" || documentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and document_id required")
	}
	ctx := c.Request().Context()

	if history, ok := h.Cache.Get(ctx, userID, documentID); ok {
		return c.JSON(http.StatusOK, history)
	}
	history, err := h.Store.ReadHistory(ctx, userID, documentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if history == nil {
		history = []models.Message{}
	}
	h.Cache.Set(ctx, userID, documentID, history)
	return c.JSON(http.StatusOK, history)
}

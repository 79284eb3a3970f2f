package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/extract"
	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/internal/rag"
	"github.com/cliofer/docchat/internal/store"
	"github.com/cliofer/docchat/models"
)

// DocumentsHandler serves upload, listing and deletion of documents.
type DocumentsHandler struct {
	Store         *store.Store
	Index         index.Index
	RAG           *rag.Service
	Extractor     *extract.PDF
	Assistant     config.AssistantConfig
	Collection    string
	MaxUploadSize int64
}

func (h *DocumentsHandler) Register(g *echo.Group) {
	g.POST("/documents/upload", h.upload)
	g.GET("/documents", h.list)
	g.DELETE("/documents/:id", h.delete)
}

// upload extracts the PDF text, stores the document, seeds the conversation
// greeting and runs the indexing pipeline.
func (h *DocumentsHandler) upload(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		userID = c.FormValue("user_id")
	}
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	if h.MaxUploadSize > 0 && fileHeader.Size > h.MaxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	text, err := h.Extractor.Text(ctx, raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "could not extract text: "+err.Error())
	}

	// mobile clients send percent-encoded names like "document%3A66660"
	fileName := fileHeader.Filename
	if decoded, err := url.QueryUnescape(fileName); err == nil {
		fileName = decoded
	}

	documentID := uuid.New().String()
	doc := models.Document{
		ID:       documentID,
		UserID:   userID,
		FileName: fileName,
		Content:  text,
	}
	if err := h.Store.CreateDocument(ctx, doc); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := h.Store.EnsureGreeting(ctx, userID, documentID, h.Assistant.GreetingText()); err != nil {
		log.Printf("greeting for document %s: %v", documentID, err)
	}

	count, err := h.RAG.Ingest(ctx, documentID, fileName, text)
	if err != nil {
		// the document must not look searchable when indexing failed
		if delErr := h.Store.SoftDeleteDocument(ctx, userID, documentID); delErr != nil {
			log.Printf("rollback document %s: %v", documentID, delErr)
		}
		return echo.NewHTTPError(http.StatusBadGateway, "indexing failed: "+err.Error())
	}
	if err := h.Store.UpdateFragmentCount(ctx, documentID, count); err != nil {
		log.Printf("fragment count for document %s: %v", documentID, err)
	}
	documentsIngested.Inc()
	fragmentsIndexed.Add(float64(count))

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"document_id":    documentID,
		"file_name":      fileName,
		"fragment_count": count,
	})
}

func (h *DocumentsHandler) list(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	docs, err := h.Store.ListDocuments(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

// delete soft-deletes the document and cascades the purge to the vector index.
func (h *DocumentsHandler) delete(c echo.Context) error {
	userID := c.QueryParam("user_id")
	documentID := c.Param("id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id required")
	}
	ctx := c.Request().Context()
	if err := h.Store.SoftDeleteDocument(ctx, userID, documentID); err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Index.DeleteByDocument(ctx, h.Collection, documentID); err != nil {
		// the janitor retries the purge later
		log.Printf("purge fragments of document %s: %v", documentID, err)
		return c.JSON(http.StatusOK, map[string]interface{}{"deleted": true, "index_purged": false})
	}
	if err := h.Store.MarkIndexPurged(ctx, documentID); err != nil {
		log.Printf("mark purged for document %s: %v", documentID, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": true, "index_purged": true})
}

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/extract"
	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/internal/rag"
	"github.com/cliofer/docchat/internal/store"
	"github.com/cliofer/docchat/provider"
)

// Run wires the shared dependencies (top-level DI) and serves the HTTP API
// until the listener fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"message": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		baseLogger.Printf("migrate: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	var cache *store.HistoryCache
	if cfg.Storage.Redis.Enabled() {
		cache, err = store.NewHistoryCache(ctx, cfg.Storage.Redis)
		if err != nil {
			baseLogger.Printf("redis unavailable, history cache disabled: %v", err)
			cache = nil
		}
	}

	llm, err := provider.New(cfg.LLM, cfg.RAG.EmbeddingDims)
	if err != nil {
		return err
	}
	idx := index.NewPostgres(st.DB)
	ragSvc, err := rag.NewService(ctx, llm, idx, cfg.RAG, nil)
	if err != nil {
		return err
	}

	docs := &DocumentsHandler{
		Store:         st,
		Index:         idx,
		RAG:           ragSvc,
		Extractor:     extract.NewPDF(),
		Assistant:     cfg.Assistant,
		Collection:    cfg.RAG.Collection,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}
	chat := &ChatHandler{
		Store:     st,
		Cache:     cache,
		RAG:       ragSvc,
		LLM:       llm,
		Assistant: cfg.Assistant,
		Limits: rag.AssembleLimits{
			MaxHistoryTurns:  cfg.RAG.MaxHistoryTurns,
			MaxContextChunks: cfg.RAG.MaxContextChunks,
		},
		TopK: cfg.RAG.TopK,
	}

	api := e.Group("/api")
	docs.Register(api)
	chat.Register(api)

	if cfg.Janitor.Enabled {
		janitor := NewJanitor(st, idx, cfg.RAG.Collection, cfg.Janitor)
		go janitor.Run(ctx)
	}

	return e.Start(cfg.Server.Address)
}

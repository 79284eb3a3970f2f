package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/internal/rag"
	srv "github.com/cliofer/docchat/internal/server"
	"github.com/cliofer/docchat/internal/store"
	"github.com/cliofer/docchat/provider"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{Use: "docchat"}
	root.AddCommand(serveCMD(), migrateCMD(), ingestCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Run(cfg)
		},
	}
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")
	return serve
}

func migrateCMD() *cobra.Command {
	var (
		cfgPath   string
		dir       string
		direction string
		steps     int
	)
	mig := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			return srv.Migrate(dir, cfg.Storage.Postgres.DSN(), direction, steps)
		},
	}
	mig.Flags().StringVar(&dir, "dir", "file://migrations", "migrations source")
	mig.Flags().StringVar(&direction, "direction", "up", "up or down")
	mig.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	mig.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file")
	return mig
}

// ingestCMD re-runs the indexing pipeline for a document already stored in
// Postgres, e.g. after changing chunking settings or the embedding model.
func ingestCMD() *cobra.Command {
	var (
		cfgPath    string
		userID     string
		documentID string
	)
	ing := &cobra.Command{
		Use:   "ingest",
		Short: "Re-index a stored document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || documentID == "" {
				return fmt.Errorf("--user-id and --document-id required")
			}
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}
			llm, err := provider.New(cfg.LLM, cfg.RAG.EmbeddingDims)
			if err != nil {
				return err
			}
			svc, err := rag.NewService(ctx, llm, index.NewPostgres(st.DB), cfg.RAG, nil)
			if err != nil {
				return err
			}

			doc, err := st.GetDocument(ctx, userID, documentID)
			if err != nil {
				return err
			}
			count, err := svc.Ingest(ctx, doc.ID, doc.FileName, doc.Content)
			if err != nil {
				return err
			}
			if err := st.UpdateFragmentCount(ctx, doc.ID, count); err != nil {
				return err
			}
			fmt.Printf("indexed %d fragments for document %s\n", count, doc.ID)
			return nil
		},
	}
	ing.Flags().StringVar(&userID, "user-id", "", "owner of the document")
	ing.Flags().StringVar(&documentID, "document-id", "", "document to re-index")
	ing.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file")
	return ing
}

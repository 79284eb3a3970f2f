package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/cliofer/docchat/config"
	"github.com/cliofer/docchat/internal/index"
	"github.com/cliofer/docchat/internal/store"
)

// Janitor purges fragments of soft-deleted documents from the vector index on
// a cron schedule. The delete handler already cascades on the happy path; the
// janitor catches purge failures and out-of-band deletions.
type Janitor struct {
	store      *store.Store
	index      index.Index
	collection string
	cfg        config.JanitorConfig
	logger     *log.Logger
}

func NewJanitor(st *store.Store, idx index.Index, collection string, cfg config.JanitorConfig) *Janitor {
	return &Janitor{
		store:      st,
		index:      idx,
		collection: collection,
		cfg:        cfg,
		logger:     log.New(log.Writer(), "[JANITOR] ", log.LstdFlags),
	}
}

// Run blocks until ctx is cancelled, sweeping at each cron tick.
func (j *Janitor) Run(ctx context.Context) {
	expr, err := cronexpr.Parse(j.cfg.Cron)
	if err != nil {
		j.logger.Printf("invalid cron %q, janitor disabled: %v", j.cfg.Cron, err)
		return
	}
	for {
		next := expr.Next(time.Now())
		if next.IsZero() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}
		if err := j.Sweep(ctx); err != nil {
			j.logger.Printf("sweep: %v", err)
		}
	}
}

// Sweep purges every eligible document once. Failures on one document do not
// stop the rest; unpurged rows come back next tick.
func (j *Janitor) Sweep(ctx context.Context) error {
	ids, err := j.store.ListPurgeable(ctx, j.cfg.GracePeriod)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := j.index.DeleteByDocument(ctx, j.collection, id); err != nil {
			j.logger.Printf("purge document %s: %v", id, err)
			continue
		}
		if err := j.store.MarkIndexPurged(ctx, id); err != nil {
			j.logger.Printf("mark purged %s: %v", id, err)
			continue
		}
		j.logger.Printf("purged fragments of document %s", id)
	}
	return nil
}

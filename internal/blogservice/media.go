package blogservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
)

// Reasons an image gets destroyed.
const (
	cleanupDelete   = "delete"
	cleanupOrphan   = "orphan"
	cleanupRollback = "rollback"
)

var cleanupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "blog_image_cleanup_total",
	Help: "Images destroyed by the blog service, by reason and outcome.",
}, []string{"reason", "outcome"})

type cleaner struct {
	store  mediaservice.Store
	logger *slog.Logger
}

// destroy removes every id concurrently and waits for all of them. Failures
// are logged and never returned.
func (c *cleaner) destroy(ctx context.Context, reason string, ids []string) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return
	}

	// a cancelled request must not leave half the images behind
	ctx = context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			if err := c.store.Destroy(ctx, id); err != nil {
				cleanupTotal.WithLabelValues(reason, "failure").Inc()
				c.logger.Error("could not destroy image", slog.String("reason", reason), slog.String("image_id", id), slog.String("error", err.Error()))
				return
			}
			cleanupTotal.WithLabelValues(reason, "success").Inc()
		}(id)
	}
	wg.Wait()
}

// contentImageIDs returns the storage ids of every image block in c.
func contentImageIDs(c *Content) []string {
	if c == nil {
		return nil
	}

	var ids []string
	for _, b := range c.Blocks {
		if b.Type == "image" && b.Data.File != nil && b.Data.File.ImageID != "" {
			ids = append(ids, b.Data.File.ImageID)
		}
	}
	return ids
}

// orphanedImages returns the ids of old content images whose URL is no longer
// listed in existing. Images still referenced by next are kept.
func orphanedImages(old, next *Content, existing []ExistingImage) []string {
	if old == nil {
		return nil
	}

	kept := make(map[string]bool, len(existing))
	for _, e := range existing {
		kept[e.URL] = true
	}

	inUse := make(map[string]bool)
	for _, id := range contentImageIDs(next) {
		inUse[id] = true
	}

	var ids []string
	for _, b := range old.Blocks {
		if b.Type != "image" || b.Data.File == nil || b.Data.File.ImageID == "" {
			continue
		}
		if kept[b.Data.File.URL] || inUse[b.Data.File.ImageID] {
			continue
		}
		ids = append(ids, b.Data.File.ImageID)
	}
	return ids
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

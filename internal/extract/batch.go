package extract

import (
	"context"

	"golang.org/x/sync/errgroup"

	"idverify/internal/models"
)

// Document is one unit of batch extraction work.
type Document struct {
	SourceID string
	Role     models.DocumentRole
	RawText  string
}

// ExtractBatch extracts every document concurrently, bounded by limit
// to respect the model provider's rate limits. Each call operates on
// its own document with no shared mutable state. Results come back in
// input order regardless of completion order, and one document's
// degraded extraction never aborts the rest.
func (e *Extractor) ExtractBatch(ctx context.Context, docs []Document, limit int) []models.IdentityRecord {
	if limit < 1 {
		limit = 1
	}
	records := make([]models.IdentityRecord, len(docs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, doc := range docs {
		g.Go(func() error {
			records[i] = e.Extract(ctx, doc.RawText, doc.Role, doc.SourceID)
			return nil
		})
	}
	_ = g.Wait() // Extract degrades instead of erroring
	return records
}

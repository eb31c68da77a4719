package jobs

import (
	"context"
	"fmt"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// StoreExtractor runs jobs against a metadata store. Removal jobs delete the
// AU's metadata items; extraction jobs are delegated to Extract, which
// defaults to recording that nothing was extracted.
type StoreExtractor struct {
	writer store.MetadataWriter
	// Extract runs an extraction job. Nil means no article iterator is available.
	Extract func(ctx context.Context, item QueueItem, w store.MetadataWriter) (int, error)
}

// NewStoreExtractor wraps writer.
func NewStoreExtractor(writer store.MetadataWriter) *StoreExtractor {
	return &StoreExtractor{writer: writer}
}

// Run executes item and returns a status message.
func (e *StoreExtractor) Run(ctx context.Context, item QueueItem) (string, error) {
	switch item.Type {
	case store.JobDelete:
		n, err := e.writer.DeleteAuMetadata(ctx, item.AuID)
		if err != nil {
			return "", fmt.Errorf("delete au metadata: %w", err)
		}
		return fmt.Sprintf("removed %d items", n), nil
	case store.JobFullExtraction, store.JobIncrementalExtraction:
		if e.Extract == nil {
			return "no article iterator configured; 0 items extracted", nil
		}
		if item.Type == store.JobFullExtraction {
			if _, err := e.writer.DeleteAuMetadata(ctx, item.AuID); err != nil {
				return "", fmt.Errorf("reset au metadata: %w", err)
			}
		}
		n, err := e.Extract(ctx, item, e.writer)
		if err != nil {
			return "", fmt.Errorf("extract: %w", err)
		}
		return fmt.Sprintf("extracted %d items", n), nil
	default:
		return "", fmt.Errorf("unsupported job type %q", item.Type)
	}
}

package projection

import (
	"context"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/paging"
	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// MetadataItem is a metadata item keyed for cursor paging.
type MetadataItem struct {
	store.ItemMetadata
}

// PageKey orders items by store sequence.
func (m MetadataItem) PageKey() paging.Key {
	return paging.Key{Seq: m.Seq, ID: m.ID}
}

// AuMetadata pages the metadata items of one AU.
func AuMetadata(reader store.MetadataReader, auID string) paging.Source[MetadataItem] {
	return paging.SourceFunc[MetadataItem](func(ctx context.Context) ([]MetadataItem, error) {
		items, err := reader.AuMetadata(ctx, auID)
		if err != nil {
			return nil, err
		}
		return lo.Map(items, func(it store.ItemMetadata, _ int) MetadataItem {
			return MetadataItem{ItemMetadata: it}
		}), nil
	})
}

// JobItem is a metadata update job keyed for cursor paging.
type JobItem struct {
	store.Job
}

// PageKey orders jobs by creation sequence.
func (j JobItem) PageKey() paging.Key {
	return paging.Key{Seq: j.Seq, ID: j.ID}
}

// Jobs pages the jobs known to mgr.
func Jobs(mgr store.JobManager) paging.Source[JobItem] {
	return paging.SourceFunc[JobItem](func(ctx context.Context) ([]JobItem, error) {
		jobs, err := mgr.ListJobs(ctx)
		if err != nil {
			return nil, err
		}
		return lo.Map(jobs, func(j store.Job, _ int) JobItem {
			return JobItem{Job: j}
		}), nil
	})
}

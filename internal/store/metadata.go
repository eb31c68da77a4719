package store

import (
	"context"
	"maps"
	"slices"
)

// ItemMetadata is one metadata item extracted from an AU.
type ItemMetadata struct {
	// Seq is the store-assigned insertion sequence (md_item_seq).
	Seq int64
	// ID uniquely identifies the item within the store.
	ID   string
	AuID string

	Scalar map[string]string
	Set    map[string][]string
	List   map[string][]string
	Map    map[string]map[string]string
}

// Clone returns a deep copy of m.
func (m ItemMetadata) Clone() ItemMetadata {
	out := m
	out.Scalar = maps.Clone(m.Scalar)
	out.Set = cloneLists(m.Set)
	out.List = cloneLists(m.List)
	if m.Map != nil {
		out.Map = make(map[string]map[string]string, len(m.Map))
		for k, v := range m.Map {
			out.Map[k] = maps.Clone(v)
		}
	}
	return out
}

func cloneLists(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

// MetadataReader returns point-in-time copies of an AU's metadata items.
type MetadataReader interface {
	// AuMetadata returns every item of auID, or ErrNotFound for an unknown AU.
	AuMetadata(ctx context.Context, auID string) ([]ItemMetadata, error)
}

// MetadataWriter mutates the metadata of AUs.
type MetadataWriter interface {
	// AddItem appends an item to its AU, assigning Seq and ID when unset.
	AddItem(ctx context.Context, item ItemMetadata) (ItemMetadata, error)
	// DeleteAuMetadata removes every item of auID and returns how many were removed.
	DeleteAuMetadata(ctx context.Context, auID string) (int, error)
}

// AuCatalog reports which AUs the node knows about.
type AuCatalog interface {
	AuExists(ctx context.Context, auID string) (bool, error)
}

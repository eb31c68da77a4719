// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultItemsTable = "md_items"
	defaultAuTable    = "aus"
)

// MetadataStoreConfig controls the Postgres connection pool used for metadata rows.
type MetadataStoreConfig struct {
	DSN             string
	ItemsTable      string
	AuTable         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
	Ping(context.Context) error
	Close()
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// snapshotTx makes every statement of a read see the same snapshot.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// MetadataStore reads and writes AU metadata items. Items are kept in an
// items table keyed by a bigserial md_item_seq; the AU table lists every AU
// the node holds, including those with no items.
//
// Expected schema:
//
//	CREATE TABLE aus (au_id TEXT PRIMARY KEY);
//	CREATE TABLE md_items (
//		md_item_seq BIGSERIAL PRIMARY KEY,
//		md_item_id  TEXT UNIQUE,
//		au_id       TEXT NOT NULL REFERENCES aus (au_id),
//		metadata    JSONB NOT NULL
//	);
type MetadataStore struct {
	pool       Pool
	itemsTable string
	auTable    string
}

var (
	_ store.MetadataReader = (*MetadataStore)(nil)
	_ store.MetadataWriter = (*MetadataStore)(nil)
	_ store.AuCatalog      = (*MetadataStore)(nil)
)

// NewMetadataStore creates a Postgres-backed MetadataStore using the provided config.
func NewMetadataStore(ctx context.Context, cfg MetadataStoreConfig) (*MetadataStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	items, aus, err := tableNames(cfg.ItemsTable, cfg.AuTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &MetadataStore{pool: pool, itemsTable: items, auTable: aus}, nil
}

// NewMetadataStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewMetadataStoreWithPool(pool Pool, itemsTable, auTable string) (*MetadataStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	items, aus, err := tableNames(itemsTable, auTable)
	if err != nil {
		return nil, err
	}
	return &MetadataStore{pool: pool, itemsTable: items, auTable: aus}, nil
}

func tableNames(items, aus string) (string, string, error) {
	if items == "" {
		items = defaultItemsTable
	}
	if aus == "" {
		aus = defaultAuTable
	}
	for _, name := range []string{items, aus} {
		if !validTableName.MatchString(name) {
			return "", "", fmt.Errorf("invalid table name %q", name)
		}
	}
	return items, aus, nil
}

// Close releases the underlying pool resources.
func (s *MetadataStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *MetadataStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// AuExists reports whether auID is listed in the AU table.
func (s *MetadataStore) AuExists(ctx context.Context, auID string) (bool, error) {
	return s.auExists(ctx, s.pool, auID)
}

func (s *MetadataStore) auExists(ctx context.Context, q querier, auID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE au_id = $1)`, s.auTable)
	var exists bool
	if err := q.QueryRow(ctx, query, auID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup au: %w", err)
	}
	return exists, nil
}

// AuMetadata returns every item of auID in md_item_seq order. The AU check
// and the item read share one read-only snapshot.
func (s *MetadataStore) AuMetadata(ctx context.Context, auID string) ([]store.ItemMetadata, error) {
	tx, err := s.pool.BeginTx(ctx, snapshotTx)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	items, err := s.readAuMetadata(ctx, tx, auID)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return items, nil
}

func (s *MetadataStore) readAuMetadata(ctx context.Context, q querier, auID string) ([]store.ItemMetadata, error) {
	if err := s.requireAu(ctx, q, auID); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT md_item_seq, COALESCE(md_item_id, md_item_seq::text), metadata
FROM %s
WHERE au_id = $1
ORDER BY md_item_seq`, s.itemsTable)
	rows, err := q.Query(ctx, query, auID)
	if err != nil {
		return nil, fmt.Errorf("query au metadata: %w", err)
	}
	defer rows.Close()

	items := []store.ItemMetadata{}
	for rows.Next() {
		var (
			item store.ItemMetadata
			raw  []byte
		)
		if err := rows.Scan(&item.Seq, &item.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan metadata row: %w", err)
		}
		var doc metadataDoc
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("decode metadata %d: %w", item.Seq, err)
			}
		}
		item.AuID = auID
		doc.apply(&item)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata rows: %w", err)
	}
	return items, nil
}

// AddItem inserts item, registering its AU if needed. The database assigns
// the sequence; an empty ID defaults to the sequence.
func (s *MetadataStore) AddItem(ctx context.Context, item store.ItemMetadata) (store.ItemMetadata, error) {
	if item.AuID == "" {
		return store.ItemMetadata{}, errors.New("item au id is required")
	}
	raw, err := json.Marshal(newMetadataDoc(item))
	if err != nil {
		return store.ItemMetadata{}, fmt.Errorf("marshal metadata: %w", err)
	}
	query := fmt.Sprintf(`
WITH au AS (
	INSERT INTO %s (au_id) VALUES ($1) ON CONFLICT (au_id) DO NOTHING
)
INSERT INTO %s (au_id, md_item_id, metadata)
VALUES ($1, NULLIF($2, ''), $3)
RETURNING md_item_seq, COALESCE(md_item_id, md_item_seq::text)`, s.auTable, s.itemsTable)

	out := item.Clone()
	if err := s.pool.QueryRow(ctx, query, item.AuID, item.ID, raw).Scan(&out.Seq, &out.ID); err != nil {
		return store.ItemMetadata{}, fmt.Errorf("insert metadata: %w", err)
	}
	return out, nil
}

// DeleteAuMetadata removes every item of auID. The AU stays registered.
func (s *MetadataStore) DeleteAuMetadata(ctx context.Context, auID string) (int, error) {
	if err := s.requireAu(ctx, s.pool, auID); err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE au_id = $1`, s.itemsTable)
	tag, err := s.pool.Exec(ctx, query, auID)
	if err != nil {
		return 0, fmt.Errorf("delete au metadata: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *MetadataStore) requireAu(ctx context.Context, q querier, auID string) error {
	ok, err := s.auExists(ctx, q, auID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("au %q: %w", auID, store.ErrNotFound)
	}
	return nil
}

// metadataDoc is the JSONB layout of one item.
type metadataDoc struct {
	Scalar map[string]string            `json:"scalarMap,omitempty"`
	Set    map[string][]string          `json:"setMap,omitempty"`
	List   map[string][]string          `json:"listMap,omitempty"`
	Map    map[string]map[string]string `json:"mapMap,omitempty"`
}

func newMetadataDoc(item store.ItemMetadata) metadataDoc {
	return metadataDoc{Scalar: item.Scalar, Set: item.Set, List: item.List, Map: item.Map}
}

func (d metadataDoc) apply(item *store.ItemMetadata) {
	item.Scalar = d.Scalar
	item.Set = d.Set
	item.List = d.List
	item.Map = d.Map
}

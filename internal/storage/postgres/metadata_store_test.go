package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

func newMockStore(t *testing.T) (*MetadataStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewMetadataStoreWithPool(mock, "", "")
	require.NoError(t, err)
	return s, mock
}

func expectAu(mock pgxmock.PgxPoolIface, auID string, exists bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(auID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectSnapshot(mock pgxmock.PgxPoolIface, auID string, exists bool) {
	mock.ExpectBeginTx(snapshotTx)
	expectAu(mock, auID, exists)
}

func TestNewMetadataStoreWithPoolValidatesTables(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewMetadataStoreWithPool(nil, "", "")
	require.Error(t, err)

	_, err = NewMetadataStoreWithPool(mock, "items; DROP TABLE aus", "")
	require.ErrorContains(t, err, "invalid table name")

	s, err := NewMetadataStoreWithPool(mock, "", "")
	require.NoError(t, err)
	require.Equal(t, "md_items", s.itemsTable)
	require.Equal(t, "aus", s.auTable)
}

func TestNewMetadataStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewMetadataStore(context.Background(), MetadataStoreConfig{})
	require.ErrorContains(t, err, "database.dsn is required")
}

func TestAuMetadataReadsRowsInOrder(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectSnapshot(mock, "au1", true)
	mock.ExpectQuery("FROM md_items").
		WithArgs("au1").
		WillReturnRows(pgxmock.NewRows([]string{"md_item_seq", "md_item_id", "metadata"}).
			AddRow(int64(1), "doi:1", []byte(`{"scalarMap":{"title":"A"}}`)).
			AddRow(int64(2), "2", []byte(`{"setMap":{"author":["x","y"]}}`)))
	mock.ExpectCommit()

	items, err := s.AuMetadata(context.Background(), "au1")
	require.NoError(t, err)
	require.Equal(t, []store.ItemMetadata{
		{Seq: 1, ID: "doi:1", AuID: "au1", Scalar: map[string]string{"title": "A"}},
		{Seq: 2, ID: "2", AuID: "au1", Set: map[string][]string{"author": {"x", "y"}}},
	}, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuMetadataEmptyAu(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectSnapshot(mock, "au1", true)
	mock.ExpectQuery("FROM md_items").
		WithArgs("au1").
		WillReturnRows(pgxmock.NewRows([]string{"md_item_seq", "md_item_id", "metadata"}))
	mock.ExpectCommit()

	items, err := s.AuMetadata(context.Background(), "au1")
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuMetadataUnknownAu(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectSnapshot(mock, "missing", false)
	mock.ExpectRollback()

	_, err := s.AuMetadata(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuMetadataQueryError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectSnapshot(mock, "au1", true)
	mock.ExpectQuery("FROM md_items").
		WithArgs("au1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.AuMetadata(context.Background(), "au1")
	require.ErrorContains(t, err, "connection reset")
	require.NotErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuMetadataBeginFails(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBeginTx(snapshotTx).WillReturnError(errors.New("too many connections"))

	_, err := s.AuMetadata(context.Background(), "au1")
	require.ErrorContains(t, err, "begin snapshot")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemInsertsRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery("INSERT INTO md_items").
		WithArgs("au1", "", []byte(`{"scalarMap":{"title":"A"}}`)).
		WillReturnRows(pgxmock.NewRows([]string{"md_item_seq", "md_item_id"}).AddRow(int64(7), "7"))

	got, err := s.AddItem(context.Background(), store.ItemMetadata{
		AuID:   "au1",
		Scalar: map[string]string{"title": "A"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), got.Seq)
	require.Equal(t, "7", got.ID)
	require.Equal(t, "A", got.Scalar["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRequiresAu(t *testing.T) {
	t.Parallel()

	s, _ := newMockStore(t)
	_, err := s.AddItem(context.Background(), store.ItemMetadata{ID: "x"})
	require.Error(t, err)
}

func TestDeleteAuMetadata(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectAu(mock, "au1", true)
	mock.ExpectExec("DELETE FROM md_items").
		WithArgs("au1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteAuMetadata(context.Background(), "au1")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAuMetadataUnknownAu(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	expectAu(mock, "missing", false)

	_, err := s.DeleteAuMetadata(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s, err := NewMetadataStoreWithPool(mock, "", "")
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	require.ErrorContains(t, s.Ping(context.Background()), "ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}

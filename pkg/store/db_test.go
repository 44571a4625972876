package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/delivery"
	"github.com/satlink-project/satlink-go/pkg/idalloc"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()
	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Path: ":memory:", Driver: "postgres"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestCounterPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "satlink.db")

	db, err := Open(Config{Path: path})
	require.NoError(t, err)

	_, ok, err := db.LoadCounter()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.SaveCounter(41))
	require.NoError(t, db.SaveCounter(42))
	require.NoError(t, db.Close())

	db = openTestDB(t, path)
	value, ok, err := db.LoadCounter()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), value)
}

func TestRecordLifecycle(t *testing.T) {
	db := openTestDB(t, filepath.Join(t.TempDir(), "satlink.db"))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.InsertRecord(delivery.Record{ID: 7, Channel: "sms", Payload: []byte("b"), ReceivedAt: base.Add(time.Second)}))
	require.NoError(t, db.InsertRecord(delivery.Record{ID: 3, Channel: "sms", Payload: []byte("a"), PendingCount: 2, ReceivedAt: base}))

	recs, err := db.ListRecords()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, uint64(3), recs[0].ID)
	assert.Equal(t, []byte("a"), recs[0].Payload)
	assert.Equal(t, 2, recs[0].PendingCount)
	assert.Equal(t, uint64(7), recs[1].ID)

	require.NoError(t, db.DeleteRecord(3))
	require.NoError(t, db.DeleteRecord(3), "deleting a missing record succeeds")

	recs, err = db.ListRecords()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(7), recs[0].ID)
}

func TestInsertReplacesExistingID(t *testing.T) {
	db := openTestDB(t, ":memory:")
	now := time.Now().UTC()

	require.NoError(t, db.InsertRecord(delivery.Record{ID: 1, Channel: "a", Payload: []byte("old"), ReceivedAt: now}))
	require.NoError(t, db.InsertRecord(delivery.Record{ID: 1, Channel: "b", Payload: []byte("new"), ReceivedAt: now}))

	recs, err := db.ListRecords()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].Channel)
	assert.Equal(t, []byte("new"), recs[0].Payload)
}

func TestDBBacksAllocator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "satlink.db")

	db, err := Open(Config{Path: path})
	require.NoError(t, err)
	alloc, err := idalloc.New(db, idalloc.Config{MaxID: 16})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		alloc.Next()
	}
	require.NoError(t, db.Close())

	db = openTestDB(t, path)
	alloc, err = idalloc.New(db, idalloc.Config{MaxID: 16})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), alloc.Next())
}

func TestHealth(t *testing.T) {
	db := openTestDB(t, ":memory:")
	assert.NoError(t, db.Health())
	require.NoError(t, db.Close())
	assert.Error(t, db.Health())
}

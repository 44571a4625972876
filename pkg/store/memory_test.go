package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlink-project/satlink-go/pkg/delivery"
)

func TestMemoryFaultInjection(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk full")

	m.InjectFault(OpInsert, boom)
	assert.ErrorIs(t, m.InsertRecord(delivery.Record{ID: 1}), boom)
	assert.Equal(t, 0, m.Len())

	m.InjectFault(OpInsert, nil)
	require.NoError(t, m.InsertRecord(delivery.Record{ID: 1}))

	m.InjectFault(OpDelete, boom)
	assert.ErrorIs(t, m.DeleteRecord(1), boom)
	assert.True(t, m.Has(1))
	assert.Equal(t, 0, m.DeleteCount(1))

	m.InjectFault(OpDelete, nil)
	require.NoError(t, m.DeleteRecord(1))
	require.NoError(t, m.DeleteRecord(1))
	assert.False(t, m.Has(1))
	assert.Equal(t, 1, m.DeleteCount(1))
}

func TestMemoryListOrder(t *testing.T) {
	m := NewMemory()
	base := time.Unix(1000, 0)
	require.NoError(t, m.InsertRecord(delivery.Record{ID: 9, ReceivedAt: base}))
	require.NoError(t, m.InsertRecord(delivery.Record{ID: 2, ReceivedAt: base.Add(time.Second)}))
	require.NoError(t, m.InsertRecord(delivery.Record{ID: 4, ReceivedAt: base}))

	recs, err := m.ListRecords()
	require.NoError(t, err)
	var ids []uint64
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []uint64{4, 9, 2}, ids)
}

func TestMemoryCounter(t *testing.T) {
	m := NewMemory()
	_, ok, err := m.LoadCounter()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SaveCounter(12))
	v, ok, err := m.LoadCounter()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(12), v)

	m.InjectFault(OpSaveCounter, errors.New("ro"))
	assert.Error(t, m.SaveCounter(13))
	v, _, _ = m.LoadCounter()
	assert.Equal(t, uint64(12), v)
}

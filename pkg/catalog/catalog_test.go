package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trferrors "github.com/charlymoron/trapflow/pkg/errors"
	"github.com/charlymoron/trapflow/pkg/logging"
)

type memStore struct {
	records []memRecord // ordered, first match wins like the DB query
	loadErr error

	lookups int
}

type memRecord struct {
	value    string
	kindID   int64
	objectID int64
}

func (m *memStore) IdentifiersOfKind(_ context.Context, kindID int64) ([]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []string
	for _, r := range m.records {
		if r.kindID == kindID {
			out = append(out, r.value)
		}
	}
	return out, nil
}

func (m *memStore) FindObjectID(_ context.Context, fragment string) (int64, bool, error) {
	m.lookups++
	for _, r := range m.records {
		if strings.Contains(r.value, fragment) {
			return r.objectID, true, nil
		}
	}
	return 0, false, nil
}

func (m *memStore) Close() error { return nil }

func newTestIndex(t *testing.T, store *memStore) *Index {
	t.Helper()
	ix := NewIndex(store, logging.Nop())
	require.NoError(t, ix.Load(context.Background(), 2))
	return ix
}

func TestLoadFailureIsFatal(t *testing.T) {
	store := &memStore{loadErr: errors.New("login failed")}
	ix := NewIndex(store, logging.Nop())

	err := ix.Load(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, trferrors.CodeCatalogUnavailable, trferrors.GetCode(err))
}

func TestResolveFirstMatchWins(t *testing.T) {
	store := &memStore{records: []memRecord{
		{value: "Tunnel T10", kindID: 1, objectID: 10},
		{value: "Tunnel T1", kindID: 1, objectID: 42},
	}}
	ix := newTestIndex(t, store)

	// "Tunnel T1" is a substring of "Tunnel T10", which comes first.
	// The permissive first-match policy is historical behavior.
	id, ok := ix.Resolve(context.Background(), "Tunnel T1")
	require.True(t, ok)
	assert.Equal(t, int64(10), id)
}

func TestResolveMemoizes(t *testing.T) {
	store := &memStore{records: []memRecord{
		{value: "Router7", kindID: 1, objectID: 9},
	}}
	ix := newTestIndex(t, store)

	for i := 0; i < 5; i++ {
		id, ok := ix.Resolve(context.Background(), "Router7")
		require.True(t, ok)
		assert.Equal(t, int64(9), id)
	}
	assert.Equal(t, 1, store.lookups, "cache should absorb repeat lookups")
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	store := &memStore{}
	ix := newTestIndex(t, store)

	_, ok := ix.Resolve(context.Background(), "ghost")
	assert.False(t, ok)
	_, ok = ix.Resolve(context.Background(), "ghost")
	assert.False(t, ok)
	assert.Equal(t, 2, store.lookups, "misses are re-queried, matching the legacy cache")
}

func TestResolveEmptyFragment(t *testing.T) {
	ix := newTestIndex(t, &memStore{})
	_, ok := ix.Resolve(context.Background(), "")
	assert.False(t, ok)
}

func TestResolveByKnownIP(t *testing.T) {
	store := &memStore{records: []memRecord{
		{value: "10.20.30.40", kindID: 2, objectID: 5},
		{value: "192.168.1.1", kindID: 2, objectID: 7},
	}}
	ix := newTestIndex(t, store)
	require.Equal(t, 2, ix.KnownIPCount())

	id, ok := ix.ResolveByKnownIP(context.Background(), "peer 192.168.1.1 unreachable")
	require.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = ix.ResolveByKnownIP(context.Background(), "no address here")
	assert.False(t, ok)
}

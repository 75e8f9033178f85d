package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.NewParser(1 << 20).Parse([]byte("a,b\n1,2\n"), "")
	require.NoError(t, err)
	return ds
}

func newTestRegistry(ttl time.Duration) (*Registry, *time.Time) {
	r := NewRegistry(ttl, 0) // no background sweep; tests drive it directly
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestCreateAcquireInfo(t *testing.T) {
	r, _ := newTestRegistry(30 * time.Minute)
	defer r.Close()
	ds := testDataset(t)

	id := r.Create(ds, "sales.csv")
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Len())

	h, err := r.Acquire(id)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", h.Session.Filename)
	assert.Same(t, ds, h.Dataset)
	h.Release()

	info, err := r.Info(id)
	require.NoError(t, err)
	assert.Equal(t, id, info.SessionID)

	_, err = r.Acquire("unknown")
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
}

func TestDelete(t *testing.T) {
	r, _ := newTestRegistry(30 * time.Minute)
	defer r.Close()

	id := r.Create(testDataset(t), "sales.csv")
	require.NoError(t, r.Delete(id))
	assert.Equal(t, 0, r.Len())

	_, err := r.Acquire(id)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))

	// Deleting twice reports not found.
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(r.Delete(id)))
}

func TestDeleteWhileAcquiredIsDeferred(t *testing.T) {
	r, _ := newTestRegistry(30 * time.Minute)
	defer r.Close()

	id := r.Create(testDataset(t), "sales.csv")
	h, err := r.Acquire(id)
	require.NoError(t, err)

	require.NoError(t, r.Delete(id))

	// The in-flight holder keeps its dataset, but new lookups fail.
	assert.NotNil(t, h.Dataset)
	_, err = r.Acquire(id)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
	assert.Equal(t, 0, r.Len())

	h.Release()
	_, err = r.Info(id)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
}

func TestReleaseIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(30 * time.Minute)
	defer r.Close()

	id := r.Create(testDataset(t), "sales.csv")
	h1, err := r.Acquire(id)
	require.NoError(t, err)
	h2, err := r.Acquire(id)
	require.NoError(t, err)

	require.NoError(t, r.Delete(id))
	h1.Release()
	h1.Release() // second release must not strip h2's pin

	_, err = r.Info(id)
	assert.Error(t, err)

	h2.Release()
	assert.Equal(t, 0, r.Len())
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	r, now := newTestRegistry(30 * time.Minute)
	defer r.Close()

	stale := r.Create(testDataset(t), "old.csv")
	*now = now.Add(31 * time.Minute)
	fresh := r.Create(testDataset(t), "new.csv")

	assert.Equal(t, 1, r.sweep())
	assert.Equal(t, 1, r.Len())

	_, err := r.Acquire(stale)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
	_, err = r.Acquire(fresh)
	assert.NoError(t, err)
}

func TestAcquireRefreshesIdleClock(t *testing.T) {
	r, now := newTestRegistry(30 * time.Minute)
	defer r.Close()

	id := r.Create(testDataset(t), "sales.csv")

	*now = now.Add(20 * time.Minute)
	h, err := r.Acquire(id)
	require.NoError(t, err)
	h.Release()

	// 20 more minutes is within the TTL measured from the refreshed access.
	*now = now.Add(20 * time.Minute)
	assert.Equal(t, 0, r.sweep())
	_, err = r.Info(id)
	assert.NoError(t, err)
}

func TestSweepDefersEvictionOfPinnedSession(t *testing.T) {
	r, now := newTestRegistry(30 * time.Minute)
	defer r.Close()

	id := r.Create(testDataset(t), "sales.csv")
	h, err := r.Acquire(id)
	require.NoError(t, err)

	*now = now.Add(31 * time.Minute)
	assert.Equal(t, 0, r.sweep(), "pinned session must not be destroyed mid-run")

	// Doomed by the sweep: invisible to lookups, destroyed on release.
	_, err = r.Info(id)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))

	h.Release()
	assert.Equal(t, 0, r.Len())
}

package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSetGetDelete(t *testing.T) {
	st := New()
	st.Set(KindIOCall, "tx1", []byte("payload"), 1)

	a, ok := st.Get(KindIOCall, "tx1")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), a.Payload)
	assert.Equal(t, 1, a.AttemptNumber)

	_, ok = st.Get(KindPage, "tx1")
	assert.False(t, ok, "kinds must not leak into each other")

	st.Delete(KindIOCall, "tx1")
	_, ok = st.Get(KindIOCall, "tx1")
	assert.False(t, ok)
}

func TestStoreBumpIncrementsAttempt(t *testing.T) {
	st := New()
	st.Set(KindPage, "page1", []byte("layout"), 1)

	a, ok := st.Bump(KindPage, "page1")
	require.True(t, ok)
	assert.Equal(t, 2, a.AttemptNumber)

	a, _ = st.Get(KindPage, "page1")
	assert.Equal(t, 2, a.AttemptNumber)

	_, ok = st.Bump(KindPage, "missing")
	assert.False(t, ok)
}

func TestStoreTotalAcrossKinds(t *testing.T) {
	st := New()
	st.Set(KindIOCall, "a", nil, 1)
	st.Set(KindPage, "b", nil, 1)
	st.Set(KindLoading, "c", nil, 1)

	assert.Equal(t, 3, st.Total())
	assert.Equal(t, 1, st.Len(KindIOCall))

	st.Delete(KindPage, "b")
	assert.Equal(t, 2, st.Total())
}

func TestStoreSnapshotIndependentOfMutation(t *testing.T) {
	st := New()
	st.Set(KindIOCall, "a", []byte("x"), 1)
	snap := st.Snapshot(KindIOCall)
	require.Len(t, snap, 1)

	st.Delete(KindIOCall, "a")
	assert.Len(t, snap, 1, "snapshot must not be aliased to the live map")
}

package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint(t *testing.T) {
	r := New()

	a, err := r.Mint("animals")
	require.NoError(t, err)
	e, err := r.Mint("electronics")
	require.NoError(t, err)
	again, err := r.Mint("animals")
	require.NoError(t, err)

	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), e)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, r.Len())

	label, ok := r.Label(e)
	assert.True(t, ok)
	assert.Equal(t, "electronics", label)

	_, ok = r.Label(5)
	assert.False(t, ok)

	id, ok := r.ID("animals")
	assert.True(t, ok)
	assert.Equal(t, a, id)
}

func TestMint_Concurrent(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				_, err := r.Mint(fmt.Sprintf("label-%d", (i+g)%50))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 50, r.Len())
	seen := map[string]bool{}
	for _, l := range r.Labels() {
		assert.False(t, seen[l])
		seen[l] = true
	}
}

func TestInserts(t *testing.T) {
	r := New()
	id, _ := r.Mint("x")

	r.AddInserts(id, 64)
	r.AddInserts(id, 64)
	r.AddInserts(99, 1)

	assert.Equal(t, uint64(128), r.Inserts(id))
	assert.Zero(t, r.Inserts(99))
}

func TestBitmap(t *testing.T) {
	r := New()
	for _, l := range []string{"a", "b", "c"} {
		_, _ = r.Mint(l)
	}

	bm := r.Bitmap("c", "a", "zzz")
	assert.Equal(t, []uint32{0, 2}, bm.ToArray())
}

func TestSnapshotRestore(t *testing.T) {
	r := New()
	for _, l := range []string{"b", "a"} {
		id, _ := r.Mint(l)
		r.AddInserts(id, uint64(id+1)*10)
	}

	restored, err := Restore(r.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, r.Labels(), restored.Labels())
	assert.Equal(t, uint64(20), restored.Inserts(1))

	id, err := restored.Mint("c")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), id, "new ids continue after restored ones")

	_, err = Restore([]Entry{{Label: "a"}, {Label: "a"}})
	require.Error(t, err)
}

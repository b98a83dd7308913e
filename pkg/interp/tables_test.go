package interp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ram"
)

func TestSymbolTable_Bijective(t *testing.T) {
	st := NewSymbolTable()
	a := st.Lookup("alice")
	b := st.Lookup("bob")
	require.NotEqual(t, a, b)
	require.Equal(t, a, st.Lookup("alice"))
	require.Equal(t, "alice", st.Resolve(a))
	require.Equal(t, "bob", st.Resolve(b))
	require.Equal(t, "", st.Resolve(99))
	require.True(t, st.Contains("alice"))
	require.False(t, st.Contains("carol"))
	require.Equal(t, 2, st.Size())
}

func TestSymbolTable_ConcurrentInsertOrLookup(t *testing.T) {
	st := NewSymbolTable()
	var wg sync.WaitGroup
	results := make([]ram.Domain, 32)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = st.Lookup("shared")
		}()
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, results[0], r)
	}
	require.Equal(t, 1, st.Size())
}

func TestRecordTable_PackUnpack(t *testing.T) {
	rt := NewRecordTable()
	id := rt.Pack(Tuple{1, 2, 3})
	require.NotEqual(t, NilRecord, id)
	require.Equal(t, id, rt.Pack(Tuple{1, 2, 3}), "content addressed")
	require.NotEqual(t, id, rt.Pack(Tuple{1, 2, 4}))

	rec := rt.Unpack(id, 3)
	require.Equal(t, Tuple{1, 2, 3}, rec)

	// Wrong arity and nil record fail gracefully.
	require.Nil(t, rt.Unpack(id, 2))
	require.Nil(t, rt.Unpack(NilRecord, 3))
}

func TestRecordTable_EmptyAndNested(t *testing.T) {
	rt := NewRecordTable()
	empty := rt.Pack(Tuple{})
	require.NotEqual(t, NilRecord, empty)

	inner := rt.Pack(Tuple{7})
	outer := rt.Pack(Tuple{inner, inner})
	require.Equal(t, Tuple{inner, inner}, rt.Unpack(outer, 2))
}

package boltkv

import (
	"context"
	"testing"

	"github.com/ClusterCockpit/ts-rollup-store/internal/storage"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFixedTreeAddAndSeekOrdering(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	wtx, err := s.BeginWrite(ctx)
	require.NoError(t, err)

	tr, err := wtx.CreateTreeIfNotExists("series-1")
	require.NoError(t, err)

	ft, err := tr.FixedTreeFor([]byte("aapl"), 8)
	require.NoError(t, err)

	ticks := []storage.Tick{500, 100, 300, 200, 400}
	for _, tk := range ticks {
		require.NoError(t, ft.Add(tk, []byte{0, 0, 0, 0, 0, 0, 0, byte(tk)}))
	}
	require.NoError(t, wtx.Commit())

	rtx, err := s.BeginRead(ctx)
	require.NoError(t, err)
	defer rtx.Rollback()

	rtr, err := rtx.Tree("series-1")
	require.NoError(t, err)
	require.NotNil(t, rtr)

	rft, err := rtr.FixedTreeFor([]byte("aapl"), 8)
	require.NoError(t, err)
	require.NotNil(t, rft)

	it, err := rft.Iterate()
	require.NoError(t, err)
	require.True(t, it.Seek(0))

	var seen []storage.Tick
	seen = append(seen, it.CurrentKey())
	for it.MoveNext() {
		seen = append(seen, it.CurrentKey())
	}

	require.Equal(t, []storage.Tick{100, 200, 300, 400, 500}, seen)
}

func TestFixedTreeMissingOnReadTxIsNil(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	rtx, err := s.BeginRead(ctx)
	require.NoError(t, err)
	defer rtx.Rollback()

	tr, err := rtx.Tree("series-1")
	require.NoError(t, err)
	require.Nil(t, tr)
}

// TestNameIteratorRequiredPrefix mirrors how Writer.Commit enumerates the
// rollup trees cached for one series key: the separator between key and
// period suffix (U+F8FF in the real engine) must stop "aaplx..." from being
// mistaken for a child of "aapl".
func TestNameIteratorRequiredPrefix(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	wtx, err := s.BeginWrite(ctx)
	require.NoError(t, err)

	tr, err := wtx.CreateTreeIfNotExists("periods-1")
	require.NoError(t, err)

	sep := ""
	names := []string{
		"aapl" + sep + "Seconds-1",
		"aapl" + sep + "Minutes-1",
		"aaplx" + sep + "Seconds-1",
		"goog" + sep + "Seconds-1",
	}
	for _, n := range names {
		_, err := tr.FixedTreeFor([]byte(n), 48)
		require.NoError(t, err)
	}
	require.NoError(t, wtx.Commit())

	rtx, err := s.BeginRead(ctx)
	require.NoError(t, err)
	defer rtx.Rollback()

	rtr, err := rtx.Tree("periods-1")
	require.NoError(t, err)

	prefix := []byte("aapl" + sep)
	it, err := rtr.Iterate(prefix)
	require.NoError(t, err)

	var got []string
	for ok := it.Seek(it.RequiredPrefix()); ok; ok = it.Next() {
		got = append(got, string(it.Current()))
	}

	require.ElementsMatch(t, []string{"aapl" + sep + "Seconds-1", "aapl" + sep + "Minutes-1"}, got)
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	wtx, err := s.BeginWrite(ctx)
	require.NoError(t, err)
	tr, err := wtx.CreateTreeIfNotExists("series-1")
	require.NoError(t, err)
	ft, err := tr.FixedTreeFor([]byte("aapl"), 8)
	require.NoError(t, err)
	require.NoError(t, ft.Add(42, make([]byte, 8)))
	require.NoError(t, ft.Delete(42))
	require.NoError(t, wtx.Commit())

	rtx, err := s.BeginRead(ctx)
	require.NoError(t, err)
	defer rtx.Rollback()
	rtr, _ := rtx.Tree("series-1")
	rft, _ := rtr.FixedTreeFor([]byte("aapl"), 8)
	it, err := rft.Iterate()
	require.NoError(t, err)
	require.False(t, it.Seek(0))
}

package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLiteIndex(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func record(id, source, content string, vec ...float32) Record {
	return Record{Chunk: Chunk{ID: id, Source: source, Content: content}, Embedding: vec}
}

func TestSQLiteIndex_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)

	require.NoError(t, idx.Add(ctx, []Record{
		record("x", "a.txt", "eje x", 1, 0, 0),
		record("y", "a.txt", "eje y", 0, 1, 0),
		record("xy", "b.txt", "diagonal", 1, 1, 0),
	}))

	results, err := idx.Search(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].ID)
	assert.Equal(t, "eje x", results[0].Content)
	assert.Equal(t, "a.txt", results[0].Source)
	assert.Equal(t, "xy", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSQLiteIndex_SearchKLargerThanCount(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.Add(ctx, []Record{record("only", "a.txt", "uno", 1, 2)}))

	results, err := idx.Search(ctx, []float32{1, 2}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestSQLiteIndex_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.Add(ctx, []Record{
		record("first", "a.txt", "1", 1, 0),
		record("second", "a.txt", "2", 1, 0),
		record("third", "a.txt", "3", 1, 0),
	}))

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
}

func TestSQLiteIndex_EmptyIndex(t *testing.T) {
	results, err := openTestIndex(t).Search(context.Background(), []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteIndex_ZeroQuery(t *testing.T) {
	_, err := openTestIndex(t).Search(context.Background(), []float32{0, 0}, 5)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSQLiteIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.Add(ctx, []Record{record("a", "a.txt", "a", 1, 0, 0)}))

	_, err := idx.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSQLiteIndex_RejectsMissingEmbedding(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)

	err := idx.Add(ctx, []Record{record("ok", "a.txt", "a", 1), record("bad", "a.txt", "b")})
	assert.ErrorIs(t, err, ErrInvalidDimension)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must not be partially committed")
}

func TestSQLiteIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	idx, err := OpenSQLiteIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, []Record{record("a", "a.txt", "hola", 1, 1)}))
	require.NoError(t, idx.Close())

	reopened, err := OpenSQLiteIndex(dir)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteIndex_ResetRemovesDirectory(t *testing.T) {
	ctx := context.Background()
	idx := openTestIndex(t)
	require.NoError(t, idx.Add(ctx, []Record{record("a", "a.txt", "hola", 1)}))

	marker := filepath.Join(idx.Dir(), "stale-file")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.NoError(t, idx.Reset(ctx))

	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "reset must delete the whole persist directory")

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, idx.Add(ctx, []Record{record("b", "b.txt", "nuevo", 1)}))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteIndex_Closed(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err := idx.Count(context.Background())
	assert.ErrorIs(t, err, ErrIndexClosed)
	assert.ErrorIs(t, idx.Add(context.Background(), []Record{record("a", "a", "a", 1)}), ErrIndexClosed)
}

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeFloat32sInto(nil, encodeFloat32s(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeFloat32sInto(nil, []byte{1, 2, 3})
	assert.Error(t, err)
}

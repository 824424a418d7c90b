package store

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStoreFs(afero.NewMemMapFs(), "/volume/bls_data")
	require.NoError(t, err)
	return s
}

func put(t *testing.T, s *LocalStore, name, content string, marker time.Time) {
	t.Helper()
	err := s.Put(context.Background(), &PutInput{
		Name:           name,
		Body:           bytes.NewReader([]byte(content)),
		Size:           int64(len(content)),
		SourceModified: marker,
	})
	require.NoError(t, err)
}

func TestLocalStore_PutListRoundtrip(t *testing.T) {
	s := newMemStore(t)
	marker := time.Date(2024, 2, 11, 8, 30, 0, 0, time.UTC)

	put(t, s, "pr.class", "class data", marker)
	put(t, s, "pr.series", "series", time.Time{})

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]*Entry{}
	for _, e := range entries {
		byName[e.Name] = e
	}

	// the marker written with the content comes back on List
	require.Contains(t, byName, "pr.class")
	assert.Equal(t, int64(len("class data")), byName["pr.class"].Size)
	assert.True(t, marker.Equal(byName["pr.class"].SourceModified))

	require.Contains(t, byName, "pr.series")
	assert.Equal(t, int64(len("series")), byName["pr.series"].Size)
}

func TestLocalStore_OverwriteReplacesContentAndMarker(t *testing.T) {
	s := newMemStore(t)
	m1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m2 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	put(t, s, "a.data", "old", m1)
	put(t, s, "a.data", "newer content", m2)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(len("newer content")), entries[0].Size)
	assert.True(t, m2.Equal(entries[0].SourceModified))

	rc, err := s.Open(context.Background(), "a.data")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "newer content", string(data))
}

func TestLocalStore_Delete(t *testing.T) {
	s := newMemStore(t)
	put(t, s, "a.data", "x", time.Time{})

	require.NoError(t, s.Delete(context.Background(), "a.data"))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// deleting a missing entry is not an error, the next listing diff
	// reconciles either way
	assert.NoError(t, s.Delete(context.Background(), "a.data"))
}

func TestLocalStore_ListHidesPartialFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s, err := NewLocalStoreFs(fsys, "/volume")
	require.NoError(t, err)

	put(t, s, "done.data", "ok", time.Time{})
	require.NoError(t, afero.WriteFile(fsys, "/volume/crashed.data"+partialSuffix, []byte("half"), 0o644))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "done.data", entries[0].Name)
}

func TestLocalStore_FailedPutLeavesNoFinalFile(t *testing.T) {
	s := newMemStore(t)

	err := s.Put(context.Background(), &PutInput{
		Name: "broken.data",
		Body: &failingReader{},
		Size: 10,
	})
	require.Error(t, err)

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_PicksBackendByLocation(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(context.Background(), dir, nil)
	require.NoError(t, err)
	_, ok := s.(*LocalStore)
	assert.True(t, ok)

	s3s, err := Open(context.Background(), "s3://bucket/prefix", &S3Config{Region: "us-east-1"})
	require.NoError(t, err)
	_, ok = s3s.(*S3Store)
	assert.True(t, ok)

	_, err = Open(context.Background(), "s3://", nil)
	assert.ErrorIs(t, err, ErrDestinationUnavailable)
}

type failingReader struct{}

func (*failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

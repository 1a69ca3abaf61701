package util

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkspace(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for n, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(content), 0644))
	}

	return dir
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	out := map[string][]byte{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		out[f.Name] = b
	}

	return out
}

func TestCreateCBZRoundTrip(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"000.jpg": "first page",
		"001.jpg": "second page",
		"002.jpg": "third page \x00\xff binary",
	}
	dir := writeWorkspace(t, root, "Title_Chapter_1", files)
	out := filepath.Join(root, "Title_Chapter_1.cbz")

	require.NoError(t, CreateCBZ(context.Background(), dir, "Title_Chapter_1", out))

	entries := readZip(t, out)
	assert.Contains(t, entries, "Title_Chapter_1/")
	assert.Len(t, entries, len(files)+1)
	for name, content := range files {
		assert.Equal(t, []byte(content), entries["Title_Chapter_1/"+name], name)
	}

	assert.NoError(t, VerifyCBZ(context.Background(), out, dir))
}

func TestCreateCBZEmptyWorkspace(t *testing.T) {
	root := t.TempDir()
	dir := writeWorkspace(t, root, "Empty", nil)
	out := filepath.Join(root, "Empty.cbz")

	require.NoError(t, CreateCBZ(context.Background(), dir, "Empty", out))

	entries := readZip(t, out)
	assert.Equal(t, []string{"Empty/"}, keys(entries))
}

func TestCreateCBZOutputCollision(t *testing.T) {
	root := t.TempDir()
	dir := writeWorkspace(t, root, "Ch", map[string]string{"000.jpg": "x"})

	// a directory where the archive should go
	out := filepath.Join(root, "Ch.cbz")
	require.NoError(t, os.Mkdir(out, 0755))

	assert.Error(t, CreateCBZ(context.Background(), dir, "Ch", out))
}

func TestCreateCBZRemovesPartialArchive(t *testing.T) {
	root := t.TempDir()
	dir := writeWorkspace(t, root, "Ch", map[string]string{"000.jpg": "x", "001.jpg": "y"})
	out := filepath.Join(root, "Ch.cbz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, CreateCBZ(ctx, dir, "Ch", out))
	assert.NoFileExists(t, out)
	assert.FileExists(t, filepath.Join(dir, "000.jpg"))
}

func TestVerifyCBZDetectsMissingFile(t *testing.T) {
	root := t.TempDir()
	dir := writeWorkspace(t, root, "Ch", map[string]string{"000.jpg": "x"})
	out := filepath.Join(root, "Ch.cbz")
	require.NoError(t, CreateCBZ(context.Background(), dir, "Ch", out))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.jpg"), []byte("late"), 0644))

	assert.Error(t, VerifyCBZ(context.Background(), out, dir))
}

func TestCleanupFolder(t *testing.T) {
	root := t.TempDir()
	dir := writeWorkspace(t, root, "Ch", map[string]string{"000.jpg": "a", "001.jpg": "b"})

	require.NoError(t, CleanupFolder(dir))

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanupFolderMissing(t *testing.T) {
	assert.Error(t, CleanupFolder(filepath.Join(t.TempDir(), "nope")))
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "512 B", Human(512))
	assert.Equal(t, "1.50 KB", Human(1536))
	assert.Equal(t, "2.00 MB", Human(2<<20))
	assert.Equal(t, "1.00 GB", Human(1<<30))
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

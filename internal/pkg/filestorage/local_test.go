package filestorage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uploadHeader builds a real multipart.FileHeader the same way gin receives
// one from a form upload.
func uploadHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	_, header, err := req.FormFile("file")
	require.NoError(t, err)
	return header
}

func TestNewLocalStorageCreatesDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "archive", "uploads")

	_, err := NewLocalStorage(base, "")
	require.NoError(t, err)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveFileWithPath(t *testing.T) {
	base := t.TempDir()
	storage, err := NewLocalStorage(base, "")
	require.NoError(t, err)

	content := "id_number,first_name,last_name\n123456789,Noa,Levi\n"
	path, err := storage.SaveFileWithPath(uploadHeader(t, "roster.csv", content), "rosters")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "uploads/rosters/"), "path %q", path)
	assert.Equal(t, ".csv", filepath.Ext(path))

	storedName := strings.TrimPrefix(path, "uploads/rosters/")
	saved, err := os.ReadFile(filepath.Join(base, "rosters", storedName))
	require.NoError(t, err)
	assert.Equal(t, content, string(saved))
}

func TestSaveFileWithPathRenames(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	// Two uploads of the same filename must never collide on disk.
	first, err := storage.SaveFileWithPath(uploadHeader(t, "roster.csv", "a"), "rosters")
	require.NoError(t, err)
	second, err := storage.SaveFileWithPath(uploadHeader(t, "roster.csv", "b"), "rosters")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestSaveFileWithPathBaseURL(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)

	path, err := storage.SaveFileWithPath(uploadHeader(t, "roster.xlsx", "x"), "rosters")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "http://localhost:8080/uploads/rosters/"), "path %q", path)
	assert.Equal(t, ".xlsx", filepath.Ext(path))
}

func TestSaveFileWithPathEmptySubPath(t *testing.T) {
	base := t.TempDir()
	storage, err := NewLocalStorage(base, "")
	require.NoError(t, err)

	path, err := storage.SaveFileWithPath(uploadHeader(t, "roster.csv", "x"), "")
	require.NoError(t, err)

	storedName := strings.TrimPrefix(path, "uploads/")
	_, err = os.Stat(filepath.Join(base, storedName))
	assert.NoError(t, err)
}

func TestSaveFileWithPathNilHeader(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	path, err := storage.SaveFileWithPath(nil, "rosters")
	assert.NoError(t, err)
	assert.Empty(t, path)
}

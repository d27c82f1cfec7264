package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndPath(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewStore(dir)
	require.NoError(t, err)

	jpegData := []byte("\xff\xd8\xff\xe0 jpeg bytes")
	name, err := s.Save(jpegData)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"), name)

	path, err := s.Path(name)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, jpegData, got)

	png, err := s.Save([]byte("\x89PNG\r\n\x1a\n rest"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(png, ".png"), png)

	other, err := s.Save([]byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, name, other)
	assert.True(t, strings.HasSuffix(other, ".img"), other)
}

func TestPathRejectsTraversal(t *testing.T) {
	t.Parallel()

	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b.png", `a\b.png`, ".hidden"} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	input := "Bearer abc.def\r\n\n  second  \nthird"
	tokens, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bearer abc.def", "second", "third"}, tokens)
}

func TestRead_LongLine(t *testing.T) {
	long := strings.Repeat("t", 200*1024)
	tokens, err := Read(strings.NewReader(long + "\n"))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Len(t, tokens[0], len(long))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o600))

	tokens, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	tokens, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = NewPool(tokens, 10)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

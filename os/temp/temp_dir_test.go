package temp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy(t *testing.T) {
	root, err := TempDirDefault()
	require.NoError(t, err)
	defer root.RemoveAll()

	fixed, err := root.FixedDir("store")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root.Dir, "store"), fixed.Dir)

	_, err = root.FixedDir("a/b")
	assert.Error(t, err)

	p, err := fixed.WriteFile("src/A.txt", "a")
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.Equal(t, p, fixed.Path("src/A.txt"))

	again, err := root.FixedDir("store")
	require.NoError(t, err)
	assert.Equal(t, fixed.Dir, again.Dir)
	_, err = os.Stat(p)
	assert.NoError(t, err)

	require.NoError(t, root.RemoveAll())
	_, err = os.Stat(root.Dir)
	assert.True(t, os.IsNotExist(err))
}

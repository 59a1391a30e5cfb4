package hashing

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/os/temp"
)

func tempDir(t *testing.T) *temp.TempDir {
	tmp, err := temp.TempDirDefault()
	require.NoError(t, err)
	t.Cleanup(func() { tmp.RemoveAll() })
	return tmp
}

func TestContentHashers(t *testing.T) {
	tmp := tempDir(t)
	p, err := tmp.WriteFile("a.txt", "a")
	require.NoError(t, err)

	h, err := NewHasher(SHA256, nil)
	require.NoError(t, err)
	sum, err := h.Hash(p)
	require.NoError(t, err)
	assert.Equal(t, "ca978112ca1bbdcafac231b39a23dc4da786eff8147c4e72b9807785afee48bb", hex.EncodeToString(sum))

	h, err = NewHasher(XXHash, nil)
	require.NoError(t, err)
	sum, err = h.Hash(p)
	require.NoError(t, err)
	assert.Equal(t, xxhash.Sum64String("a"), binary.BigEndian.Uint64(sum))

	_, err = NewHasher("md5", nil)
	assert.Error(t, err)

	_, err = h.Hash(tmp.Path("missing"))
	assert.Error(t, err)
}

func TestHashedFileSerializer(t *testing.T) {
	f := HashedFile{Length: 5, ModTime: 1234567890123, Hash: []byte{1, 2, 3}}
	data, err := HashedFileSerializer{}.Encode(f)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 1, 0x1f, 0x71, 0xfb, 0x04, 0xcb, 3, 1, 2, 3}, data)

	got, err := HashedFileSerializer{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = HashedFileSerializer{}.Decode([]byte{1})
	assert.Error(t, err)
	_, err = HashedFileSerializer{}.Decode(data[:10])
	assert.Error(t, err)
}

func TestCachingHasherReusesUnchangedFiles(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tmp := tempDir(t)
	p, err := tmp.WriteFile("src/A.txt", "a")
	require.NoError(t, err)

	store, err := cache.Open(tmp.Path("store"), time.Millisecond, nil)
	require.NoError(t, err)
	defer store.Close()
	c, err := store.Cache(cache.FileHashesCache)
	require.NoError(t, err)

	delegate := NewMockHasher(mockCtrl)
	gomock.InOrder(
		delegate.EXPECT().Hash(p).Return([]byte{1}, nil),
		delegate.EXPECT().Hash(p).Return([]byte{2}, nil),
	)
	h := NewCachingHasher(delegate, c, nil)

	require.NoError(t, store.UseCache("hash", func(*cache.Session) error {
		for i := 0; i < 2; i++ {
			sum, err := h.Hash(p)
			require.NoError(t, err)
			assert.Equal(t, []byte{1}, sum)
		}

		// Changing the modification time forces a rehash.
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(p, later, later))
		sum, err := h.Hash(p)
		require.NoError(t, err)
		assert.Equal(t, []byte{2}, sum)
		return nil
	}))
}

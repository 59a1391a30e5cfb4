package hashing

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/stats"
)

// Shared with the snapshot codec's hash tag.
const hashedFileTag byte = 3

// HashedFile is what the fileHashes cache remembers about a path.
type HashedFile struct {
	Length  int64
	ModTime int64
	Hash    []byte
}

// CachingHasher skips rehashing files whose length and modification time
// match what was recorded the last time they were hashed. Must be used
// inside a Store.UseCache batch.
type CachingHasher struct {
	delegate Hasher
	cache    *cache.TypedCache[string, HashedFile]
	stat     stats.StatsReceiver
}

func NewCachingHasher(delegate Hasher, c cache.IndexedCache, stat stats.StatsReceiver) *CachingHasher {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &CachingHasher{
		delegate: delegate,
		cache:    cache.NewTypedCache[string, HashedFile](c, cache.StringSerializer{}, HashedFileSerializer{}),
		stat:     stat.Scope("hasher"),
	}
}

func (h *CachingHasher) Hash(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't stat %s for hashing: %v", path, err)
	}
	length, modTime := info.Size(), info.ModTime().UnixNano()
	cached, ok, err := h.cache.Get(path)
	if err != nil {
		return nil, err
	}
	if ok && cached.Length == length && cached.ModTime == modTime {
		h.stat.Counter(stats.HasherCacheHitCounter).Inc(1)
		return cached.Hash, nil
	}
	hash, err := h.delegate.Hash(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("Hashed %s (length=%d mtime=%d)", path, length, modTime)
	if err := h.cache.Put(path, HashedFile{Length: length, ModTime: modTime, Hash: hash}); err != nil {
		return nil, err
	}
	return hash, nil
}

// HashedFileSerializer writes tag 3, 8-byte length, 8-byte mtime, 1-byte
// hash length and the hash, big-endian.
type HashedFileSerializer struct{}

func (HashedFileSerializer) Encode(f HashedFile) ([]byte, error) {
	if len(f.Hash) > 255 {
		return nil, fmt.Errorf("hash too long: %d bytes", len(f.Hash))
	}
	buf := bytes.NewBuffer(make([]byte, 0, 18+len(f.Hash)))
	buf.WriteByte(hashedFileTag)
	binary.Write(buf, binary.BigEndian, f.Length)
	binary.Write(buf, binary.BigEndian, f.ModTime)
	buf.WriteByte(byte(len(f.Hash)))
	buf.Write(f.Hash)
	return buf.Bytes(), nil
}

func (HashedFileSerializer) Decode(data []byte) (HashedFile, error) {
	f := HashedFile{}
	r := bytes.NewReader(data)
	tag, err := r.ReadByte()
	if err != nil {
		return f, errors.Wrap(err, "empty hashed file record")
	}
	if tag != hashedFileTag {
		return f, fmt.Errorf("unrecognized hashed file tag %d", tag)
	}
	if err := binary.Read(r, binary.BigEndian, &f.Length); err != nil {
		return f, errors.Wrap(err, "truncated hashed file record")
	}
	if err := binary.Read(r, binary.BigEndian, &f.ModTime); err != nil {
		return f, errors.Wrap(err, "truncated hashed file record")
	}
	n, err := r.ReadByte()
	if err != nil {
		return f, errors.Wrap(err, "truncated hashed file record")
	}
	f.Hash = make([]byte, n)
	if _, err := io.ReadFull(r, f.Hash); err != nil {
		return f, errors.Wrap(err, "truncated hashed file record")
	}
	return f, nil
}

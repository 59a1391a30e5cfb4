// Package hashing computes content hashes of regular files, optionally
// remembering them in the persistent fileHashes cache keyed by path and
// validated by length and modification time.
package hashing

//go:generate mockgen -source=hasher.go -package=hashing -destination=hasher_mock.go

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/twitter/taskstate/common/stats"
)

const (
	SHA256 = "sha256"
	XXHash = "xxhash"
)

// Hasher returns the content hash of the regular file at path.
type Hasher interface {
	Hash(path string) ([]byte, error)
}

// NewHasher returns a content hasher by name, SHA256 or XXHash.
func NewHasher(kind string, stat stats.StatsReceiver) (Hasher, error) {
	switch kind {
	case SHA256, "":
		return NewSHA256Hasher(stat), nil
	case XXHash:
		return NewXXHasher(stat), nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", kind)
	}
}

func NewSHA256Hasher(stat stats.StatsReceiver) Hasher {
	return newContentHasher(sha256.New, stat)
}

// xxhash is not collision resistant but is much faster on large trees.
func NewXXHasher(stat stats.StatsReceiver) Hasher {
	return newContentHasher(func() hash.Hash { return xxhash.New() }, stat)
}

type contentHasher struct {
	newHash func() hash.Hash
	stat    stats.StatsReceiver
}

func newContentHasher(newHash func() hash.Hash, stat stats.StatsReceiver) *contentHasher {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &contentHasher{newHash: newHash, stat: stat.Scope("hasher")}
}

func (h *contentHasher) Hash(path string) ([]byte, error) {
	defer h.stat.Latency(stats.HasherHashLatency_ms).Time().Stop()
	h.stat.Counter(stats.HasherHashCounter).Inc(1)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s for hashing: %v", path, err)
	}
	defer f.Close()
	d := h.newHash()
	if _, err := io.Copy(d, f); err != nil {
		return nil, fmt.Errorf("couldn't hash %s: %v", path, err)
	}
	return d.Sum(nil), nil
}

package snapshot

import (
	"bytes"
	"fmt"
)

// FileType is also the tag byte of the encoded FileSnapshot.
type FileType byte

const (
	DirectoryType FileType = 1
	MissingType   FileType = 2
	HashType      FileType = 3
)

func (t FileType) String() string {
	switch t {
	case DirectoryType:
		return "Directory"
	case MissingType:
		return "Missing"
	case HashType:
		return "Hash"
	default:
		return fmt.Sprintf("FileType(%d)", byte(t))
	}
}

// FileSnapshot is the observed state of one path. Hash and ModTime are only
// set for HashType. ModTime is informational and is not encoded.
type FileSnapshot struct {
	Type    FileType
	Hash    []byte
	ModTime *int64
}

func Directory() FileSnapshot {
	return FileSnapshot{Type: DirectoryType}
}

func Missing() FileSnapshot {
	return FileSnapshot{Type: MissingType}
}

func Hashed(hash []byte, modTime *int64) FileSnapshot {
	return FileSnapshot{Type: HashType, Hash: hash, ModTime: modTime}
}

// ContentEquals ignores modification times.
func (f FileSnapshot) ContentEquals(other FileSnapshot) bool {
	switch f.Type {
	case DirectoryType, MissingType:
		return other.Type == f.Type
	case HashType:
		return other.Type == HashType && bytes.Equal(f.Hash, other.Hash)
	default:
		panic(fmt.Sprintf("unknown file type %v", f.Type))
	}
}

// ContentAndMetadataEquals also requires modification times to match. An
// absent time only matches an absent time.
func (f FileSnapshot) ContentAndMetadataEquals(other FileSnapshot) bool {
	if !f.ContentEquals(other) {
		return false
	}
	switch f.Type {
	case DirectoryType, MissingType:
		return true
	case HashType:
		if f.ModTime == nil || other.ModTime == nil {
			return f.ModTime == nil && other.ModTime == nil
		}
		return *f.ModTime == *other.ModTime
	default:
		panic(fmt.Sprintf("unknown file type %v", f.Type))
	}
}

func (f FileSnapshot) String() string {
	switch f.Type {
	case HashType:
		return fmt.Sprintf("Hash(%x)", f.Hash)
	default:
		return f.Type.String()
	}
}

package snapshot

import (
	"github.com/pkg/errors"

	"github.com/twitter/taskstate/common/wire"
)

// ErrUnknownTag is the cause of decoding errors for unrecognized tags.
var ErrUnknownTag = errors.New("unknown snapshot tag")

// Top-level kind discriminators.
const (
	collectionKind int32 = 1
	outputsKind    int32 = 2
)

// Encode serializes either kind of snapshot behind its kind discriminator.
func Encode(s Snapshot) ([]byte, error) {
	w := wire.NewWriter()
	switch v := s.(type) {
	case *FileCollectionSnapshot:
		w.Int32(collectionKind)
		if err := writeCollection(w, v); err != nil {
			return nil, err
		}
	case *OutputFilesSnapshot:
		w.Int32(outputsKind)
		if err := writeOutputs(w, v); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("can't encode snapshot of type %T", s)
	}
	return w.Bytes(), nil
}

func Decode(data []byte) (Snapshot, error) {
	r := wire.NewReader(data)
	kind, err := r.Int32("snapshot kind")
	if err != nil {
		return nil, err
	}
	var s Snapshot
	switch kind {
	case collectionKind:
		s, err = readCollection(r)
	case outputsKind:
		s, err = readOutputs(r)
	default:
		return nil, errors.Wrapf(ErrUnknownTag, "snapshot kind %d", kind)
	}
	if err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, errors.Errorf("%d trailing bytes after snapshot", r.Remaining())
	}
	return s, nil
}

// Serializer plugs Encode and Decode into a cache.TypedCache.
type Serializer struct{}

func (Serializer) Encode(s Snapshot) ([]byte, error)    { return Encode(s) }
func (Serializer) Decode(data []byte) (Snapshot, error) { return Decode(data) }

func writeFile(w *wire.Writer, f FileSnapshot) error {
	w.Byte(byte(f.Type))
	switch f.Type {
	case DirectoryType, MissingType:
		return nil
	case HashType:
		return w.ShortBlob(f.Hash)
	default:
		return errors.Wrapf(ErrUnknownTag, "file snapshot tag %d", f.Type)
	}
}

func readFile(r *wire.Reader) (FileSnapshot, error) {
	tag, err := r.Byte("file snapshot tag")
	if err != nil {
		return FileSnapshot{}, err
	}
	switch FileType(tag) {
	case DirectoryType:
		return Directory(), nil
	case MissingType:
		return Missing(), nil
	case HashType:
		hash, err := r.ShortBlob("file hash")
		if err != nil {
			return FileSnapshot{}, err
		}
		return Hashed(hash, nil), nil
	default:
		return FileSnapshot{}, errors.Wrapf(ErrUnknownTag, "file snapshot tag %d", tag)
	}
}

// Entries are written in path order so equal snapshots encode identically.
func writeCollection(w *wire.Writer, s *FileCollectionSnapshot) error {
	if err := w.Count(s.Len()); err != nil {
		return err
	}
	for _, p := range s.Paths() {
		if err := w.String(p); err != nil {
			return err
		}
		if err := writeFile(w, s.files[p]); err != nil {
			return errors.Wrapf(err, "path %s", p)
		}
	}
	return nil
}

func readCollection(r *wire.Reader) (*FileCollectionSnapshot, error) {
	n, err := r.Count("file count")
	if err != nil {
		return nil, err
	}
	files := make(map[string]FileSnapshot, n)
	for i := 0; i < n; i++ {
		p, err := r.String("path")
		if err != nil {
			return nil, err
		}
		f, err := readFile(r)
		if err != nil {
			return nil, errors.Wrapf(err, "path %s", p)
		}
		files[p] = f
	}
	return NewFileCollectionSnapshot(files), nil
}

func writeOutputs(w *wire.Writer, s *OutputFilesSnapshot) error {
	if err := w.Count(len(s.roots)); err != nil {
		return err
	}
	for _, root := range s.Roots() {
		if err := w.String(root); err != nil {
			return err
		}
		w.OptionalInt64(s.roots[root])
	}
	return writeCollection(w, s.files)
}

func readOutputs(r *wire.Reader) (*OutputFilesSnapshot, error) {
	n, err := r.Count("root count")
	if err != nil {
		return nil, err
	}
	roots := make(map[string]*int64, n)
	for i := 0; i < n; i++ {
		root, err := r.String("root path")
		if err != nil {
			return nil, err
		}
		id, err := r.OptionalInt64("root id")
		if err != nil {
			return nil, err
		}
		roots[root] = id
	}
	files, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	return NewOutputFilesSnapshot(roots, files), nil
}

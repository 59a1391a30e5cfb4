package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

const lockStateVersion byte = 1

// LockState is persisted in the store's lock file. Sequence is bumped by the
// first write of every batch, so a holder can tell whether anyone else wrote
// to the store since it last let go of the lock.
type LockState struct {
	Version  byte
	Dirty    bool
	Sequence int64
	Owner    string
}

// Token identifies the store contents as of the last completed batch.
func (l LockState) Token() int64 {
	return l.Sequence
}

func (l LockState) String() string {
	return fmt.Sprintf("LockState{version=%d dirty=%t sequence=%d owner=%s}", l.Version, l.Dirty, l.Sequence, l.Owner)
}

func encodeLockState(l LockState) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(l.Version)
	if l.Dirty {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	binary.Write(buf, binary.BigEndian, l.Sequence)
	binary.Write(buf, binary.BigEndian, uint16(len(l.Owner)))
	buf.WriteString(l.Owner)
	return buf.Bytes()
}

func decodeLockState(data []byte) (LockState, error) {
	if len(data) == 0 {
		return LockState{Version: lockStateVersion}, nil
	}
	r := bytes.NewReader(data)
	l := LockState{}
	var err error
	if l.Version, err = r.ReadByte(); err != nil {
		return l, errors.Wrap(err, "truncated lock state")
	}
	if l.Version != lockStateVersion {
		return l, fmt.Errorf("unsupported lock state version %d", l.Version)
	}
	dirty, err := r.ReadByte()
	if err != nil {
		return l, errors.Wrap(err, "truncated lock state")
	}
	l.Dirty = dirty != 0
	if err := binary.Read(r, binary.BigEndian, &l.Sequence); err != nil {
		return l, errors.Wrap(err, "truncated lock state")
	}
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return l, errors.Wrap(err, "truncated lock state")
	}
	owner := make([]byte, n)
	if _, err := io.ReadFull(r, owner); err != nil {
		return l, errors.Wrap(err, "truncated lock state")
	}
	l.Owner = string(owner)
	return l, nil
}

func readLockState(f *os.File) (LockState, error) {
	info, err := f.Stat()
	if err != nil {
		return LockState{}, errors.Wrapf(err, "couldn't stat lock file %s", f.Name())
	}
	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
		return LockState{}, errors.Wrapf(err, "couldn't read lock file %s", f.Name())
	}
	l, err := decodeLockState(data)
	if err != nil {
		return l, errors.Wrapf(err, "lock file %s", f.Name())
	}
	return l, nil
}

func writeLockState(f *os.File, l LockState) error {
	data := encodeLockState(l)
	if _, err := f.WriteAt(data, 0); err != nil {
		return errors.Wrapf(err, "couldn't write lock file %s", f.Name())
	}
	if err := f.Truncate(int64(len(data))); err != nil {
		return errors.Wrapf(err, "couldn't truncate lock file %s", f.Name())
	}
	return nil
}

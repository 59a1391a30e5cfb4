package cache

import (
	"encoding/binary"
	"fmt"
)

// Serializer converts values of T to and from their stored form.
type Serializer[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

// TypedCache is a view of an IndexedCache that serializes keys and values.
type TypedCache[K, V any] struct {
	cache IndexedCache
	keys  Serializer[K]
	vals  Serializer[V]
}

func NewTypedCache[K, V any](c IndexedCache, keys Serializer[K], vals Serializer[V]) *TypedCache[K, V] {
	return &TypedCache[K, V]{cache: c, keys: keys, vals: vals}
}

func (t *TypedCache[K, V]) Get(key K) (V, bool, error) {
	var zero V
	k, err := t.keys.Encode(key)
	if err != nil {
		return zero, false, err
	}
	data, ok, err := t.cache.Get(k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.vals.Decode(data)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (t *TypedCache[K, V]) Put(key K, value V) error {
	k, err := t.keys.Encode(key)
	if err != nil {
		return err
	}
	v, err := t.vals.Encode(value)
	if err != nil {
		return err
	}
	return t.cache.Put(k, v)
}

func (t *TypedCache[K, V]) Remove(key K) error {
	k, err := t.keys.Encode(key)
	if err != nil {
		return err
	}
	return t.cache.Remove(k)
}

// StringSerializer stores strings as their UTF-8 bytes.
type StringSerializer struct{}

func (StringSerializer) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (StringSerializer) Decode(b []byte) (string, error) { return string(b), nil }

// Int64Serializer stores int64 values as 8 big-endian bytes.
type Int64Serializer struct{}

func (Int64Serializer) Encode(i int64) ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b, nil
}

func (Int64Serializer) Decode(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes for int64, got %d", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

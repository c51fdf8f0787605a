package archive

import (
	"context"
)

// KeyLister enumerates object names under a prefix.
type KeyLister interface {
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// KeyIndex is a read-only snapshot of the object names already in the bucket.
type KeyIndex struct {
	keys map[string]struct{}
}

// NewKeyIndex builds an index from full object names.
func NewKeyIndex(keys ...string) *KeyIndex {
	idx := &KeyIndex{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		idx.keys[k] = struct{}{}
	}
	return idx
}

// LoadIndex lists every object under prefix once and returns the snapshot.
func LoadIndex(ctx context.Context, lister KeyLister, prefix string) (*KeyIndex, error) {
	keys, err := lister.ListKeys(ctx, prefix)
	if err != nil {
		return nil, &StageError{Stage: StageExtracting, Op: "list existing objects", Err: err}
	}
	return NewKeyIndex(keys...), nil
}

// Contains reports whether the full object name is indexed. A nil index is empty.
func (i *KeyIndex) Contains(key string) bool {
	if i == nil {
		return false
	}
	_, ok := i.keys[key]
	return ok
}

// Len returns the number of indexed keys.
func (i *KeyIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.keys)
}

package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process object store for tests. It honours the same
// create-if-absent and not-found contracts as GCS. The zero value is not
// usable; use NewMemory.
type Memory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string][]byte
}

// NewMemory returns an empty store. The bucket name only shows up in signed URLs.
func NewMemory(bucket string) *Memory {
	return &Memory{
		bucket:  bucket,
		objects: make(map[string][]byte),
	}
}

// ListKeys returns all keys with the given prefix in lexical order.
func (m *Memory) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Create stores data under key unless the key already exists.
func (m *Memory) Create(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrObjectExists)
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// Write stores data under key, replacing any existing object.
func (m *Memory) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = append([]byte(nil), data...)
	return nil
}

// Read returns a copy of the object stored under key.
func (m *Memory) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// SignURL returns a fake signed URL carrying the expiry as a unix timestamp.
func (m *Memory) SignURL(key string, expires time.Time) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {fmt.Sprint(expires.Unix())}}.Encode(),
	}
	return u.String(), nil
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

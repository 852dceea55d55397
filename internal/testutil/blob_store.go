package testutil

import (
	"context"
	"fmt"
	"sync"

	"recipe-service/internal/utils/storage"
)

type StoredBlob struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryBlobStore is an in-process storage.BlobStore. Any method can be made
// to fail by setting the matching Err field.
type MemoryBlobStore struct {
	mu      sync.Mutex
	bucket  string
	blobs   map[string]StoredBlob
	uploads int

	DownloadErr error
	UploadErr   error
	DeleteErr   error
}

var _ storage.BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore(bucket string) *MemoryBlobStore {
	return &MemoryBlobStore{bucket: bucket, blobs: map[string]StoredBlob{}}
}

func (m *MemoryBlobStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = StoredBlob{Data: data}
}

func (m *MemoryBlobStore) Get(key string) (StoredBlob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	return b, ok
}

func (m *MemoryBlobStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryBlobStore) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}

func (m *MemoryBlobStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	b, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrBlobNotFound, m.bucket, key)
	}
	return b.Data, nil
}

func (m *MemoryBlobStore) Upload(_ context.Context, key string, data []byte, contentType, cacheControl string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	m.blobs[key] = StoredBlob{Data: data, ContentType: contentType, CacheControl: cacheControl}
	m.uploads++
	return m.publicURL(key), nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.blobs, key)
	return nil
}

func (m *MemoryBlobStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

func (m *MemoryBlobStore) PublicURL(key string) string {
	return m.publicURL(key)
}

func (m *MemoryBlobStore) publicURL(key string) string {
	return fmt.Sprintf("https://blobs.test/%s/%s", m.bucket, key)
}

package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type blob struct {
	contentType string
	data        []byte
}

// BlobStore keeps uploaded documents in memory. Used when no S3 bucket is configured.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

func (b *BlobStore) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = blob{contentType: contentType, data: buf.Bytes()}
	return "mem://" + key, nil
}

// Get returns a stored document and its content type.
func (b *BlobStore) Get(key string) ([]byte, string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.blobs[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), v.data...), v.contentType, true
}

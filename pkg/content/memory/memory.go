package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/pkg/content"
)

// MemoryBlobStore keeps blobs in process memory.
//
// Intended for tests and ephemeral deployments. Refs are the put paths and
// URLs use the mem:// scheme.
//
// Thread Safety:
// All operations are protected by a read-write mutex.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*blob

	maxSizeBytes uint64
	usedBytes    uint64

	putErr    error
	removeErr map[string]error
}

type blob struct {
	data    []byte
	modTime time.Time
}

// MemoryBlobStoreConfig configures the in-memory blob store.
type MemoryBlobStoreConfig struct {
	// MaxSizeBytes caps the total stored bytes. Zero means unlimited.
	MaxSizeBytes uint64 `mapstructure:"max_size_bytes"`
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore(ctx context.Context, config MemoryBlobStoreConfig) (*MemoryBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryBlobStore{
		blobs:        make(map[string]*blob),
		maxSizeBytes: config.MaxSizeBytes,
		removeErr:    make(map[string]error),
	}, nil
}

// FailPuts makes every subsequent Put fail with err (nil clears).
func (s *MemoryBlobStore) FailPuts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

// FailRemove makes Remove of ref fail with err (nil clears).
func (s *MemoryBlobStore) FailRemove(ref string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.removeErr, ref)
		return
	}
	s.removeErr[ref] = err
}

func (s *MemoryBlobStore) Put(ctx context.Context, path string, r io.Reader, size int64, progress content.ProgressFunc) (content.Object, error) {
	if err := ctx.Err(); err != nil {
		return content.Object{}, err
	}
	if path == "" {
		return content.Object{}, fmt.Errorf("put: %w", content.ErrInvalidRef)
	}

	s.mu.RLock()
	putErr := s.putErr
	s.mu.RUnlock()
	if putErr != nil {
		return content.Object{}, putErr
	}

	pr := content.NewProgressReader(r, size, progress)
	pr.Start()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, pr); err != nil {
		return content.Object{}, fmt.Errorf("read blob %s: %w", path, err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return content.Object{}, fmt.Errorf("blob %s: got %d bytes, want %d: %w", path, buf.Len(), size, content.ErrSizeMismatch)
	}

	s.mu.Lock()
	prevSize := uint64(0)
	if prev, ok := s.blobs[path]; ok {
		prevSize = uint64(len(prev.data))
	}
	newUsed := s.usedBytes - prevSize + uint64(buf.Len())
	if s.maxSizeBytes > 0 && newUsed > s.maxSizeBytes {
		s.mu.Unlock()
		return content.Object{}, fmt.Errorf("blob %s: memory store full (%d/%d bytes)", path, newUsed, s.maxSizeBytes)
	}
	s.blobs[path] = &blob{data: buf.Bytes(), modTime: time.Now()}
	s.usedBytes = newUsed
	s.mu.Unlock()

	pr.Done()

	return content.Object{Ref: path, URL: "mem://" + path, Size: int64(buf.Len())}, nil
}

func (s *MemoryBlobStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blobs[ref]; !ok {
		return "", fmt.Errorf("blob %s: %w", ref, content.ErrBlobNotFound)
	}
	return "mem://" + ref, nil
}

func (s *MemoryBlobStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.removeErr[ref]; err != nil {
		return err
	}

	if b, ok := s.blobs[ref]; ok {
		s.usedBytes -= uint64(len(b.data))
		delete(s.blobs, ref)
	}
	return nil
}

func (s *MemoryBlobStore) List(ctx context.Context) ([]content.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]content.ObjectInfo, 0, len(s.blobs))
	for ref, b := range s.blobs {
		infos = append(infos, content.ObjectInfo{Ref: ref, Size: int64(len(b.data)), ModTime: b.modTime})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Ref < infos[j].Ref })
	return infos, nil
}

// Bytes returns a copy of the blob stored under ref.
func (s *MemoryBlobStore) Bytes(ref string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[ref]
	if !ok {
		return nil, false
	}
	return bytes.Clone(b.data), true
}

// SetModTime overrides the modification time of ref, for age-based tests.
func (s *MemoryBlobStore) SetModTime(ref string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[ref]; ok {
		b.modTime = t
	}
}

// UsedBytes returns the total number of stored bytes.
func (s *MemoryBlobStore) UsedBytes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usedBytes
}

// Package fs implements filesystem-based blob storage.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittodrive/pkg/content"
)

const tempPrefix = ".upload-"

// FSBlobStore stores blobs as files below a base directory.
//
// The ref of a blob is its slash-separated path relative to the base
// directory. Writes go to a temporary file that is renamed into place, so a
// ref never points at a partially written blob.
//
// Thread Safety:
// Concurrent Puts to different refs are safe. Concurrent Puts to the same ref
// race; the last rename wins.
type FSBlobStore struct {
	basePath string
}

// FSBlobStoreConfig configures the filesystem blob store.
type FSBlobStoreConfig struct {
	// Path is the base directory. Created with 0755 if missing.
	Path string `mapstructure:"path"`
}

// NewFSBlobStore creates a filesystem blob store rooted at config.Path.
func NewFSBlobStore(ctx context.Context, config FSBlobStoreConfig) (*FSBlobStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Path == "" {
		return nil, fmt.Errorf("filesystem blob store: path is required")
	}

	abs, err := filepath.Abs(config.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve base path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSBlobStore{basePath: abs}, nil
}

// resolve maps a ref onto a path below basePath, rejecting escapes.
func (s *FSBlobStore) resolve(ref string) (string, error) {
	if ref == "" {
		return "", content.ErrInvalidRef
	}

	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("ref %q: %w", ref, content.ErrInvalidRef)
	}
	return filepath.Join(s.basePath, clean), nil
}

func (s *FSBlobStore) Put(ctx context.Context, path string, r io.Reader, size int64, progress content.ProgressFunc) (content.Object, error) {
	if err := ctx.Err(); err != nil {
		return content.Object{}, err
	}

	target, err := s.resolve(path)
	if err != nil {
		return content.Object{}, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return content.Object{}, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*")
	if err != nil {
		return content.Object{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmp.Name())
	}()

	pr := content.NewProgressReader(&ctxReader{ctx: ctx, r: r}, size, progress)
	pr.Start()

	written, err := io.Copy(tmp, pr)
	if err != nil {
		_ = tmp.Close()
		return content.Object{}, fmt.Errorf("write blob %s: %w", path, err)
	}
	if size >= 0 && written != size {
		_ = tmp.Close()
		return content.Object{}, fmt.Errorf("blob %s: got %d bytes, want %d: %w", path, written, size, content.ErrSizeMismatch)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return content.Object{}, fmt.Errorf("sync blob %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return content.Object{}, fmt.Errorf("close blob %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return content.Object{}, fmt.Errorf("commit blob %s: %w", path, err)
	}

	pr.Done()

	ref := filepath.ToSlash(strings.TrimPrefix(target, s.basePath+string(filepath.Separator)))
	return content.Object{Ref: ref, URL: fileURL(target), Size: written}, nil
}

func (s *FSBlobStore) ResolveURL(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("blob %s: %w", ref, content.ErrBlobNotFound)
		}
		return "", fmt.Errorf("stat blob %s: %w", ref, err)
	}
	return fileURL(target), nil
}

func (s *FSBlobStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob %s: %w", ref, err)
	}
	return nil
}

// List walks the base directory. In-flight temporary files are skipped.
func (s *FSBlobStore) List(ctx context.Context) ([]content.ObjectInfo, error) {
	var infos []content.ObjectInfo

	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}

		infos = append(infos, content.ObjectInfo{
			Ref:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	return infos, nil
}

// BasePath returns the root directory of the store.
func (s *FSBlobStore) BasePath() string {
	return s.basePath
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// ctxReader aborts a copy when ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

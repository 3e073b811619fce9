package objectstore

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
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/common"
	"github.com/dmitrijs2005/weldkeeper/internal/server/auth"
)

// ObjectsPath is the HTTP route that serves FSStore objects by signed token.
const ObjectsPath = "/api/v1/objects"

// FSStore keeps objects as files below a root directory. Signed URLs point
// at ObjectsPath on baseURL and carry an object token.
type FSStore struct {
	root    string
	bucket  string
	baseURL string
	secret  []byte
}

func NewFSStore(root, bucket, baseURL string, secret []byte) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(root, bucket), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create object root: %w", err)
	}
	return &FSStore{root: root, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/"), secret: secret}, nil
}

func (s *FSStore) Bucket() string {
	return s.bucket
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(clean)), nil
}

// Put writes through a temporary file so readers never see a partial object.
func (s *FSStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *FSStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token, err := auth.GenerateObjectToken(key, s.secret, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign object %s: %w", key, err)
	}
	return s.baseURL + ObjectsPath + "?token=" + url.QueryEscape(token), nil
}

// Open resolves a token issued by PresignGet and opens the object.
func (s *FSStore) Open(ctx context.Context, token string) (string, io.ReadCloser, error) {
	key, err := auth.GetObjectKeyFromToken(token, s.secret)
	if err != nil {
		return "", nil, err
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return key, rc, nil
}

// Package storage implements the object repository for document payloads:
// a local filesystem store plus HMAC-signed, time-limited download URLs.
// The signature covers the object path and an absolute expiry, so a link
// can be handed to an anonymous viewer and dies on its own without any
// server-side session.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arsipwarga/arsipwarga/internal/logger"
)

// ErrObjectMissing is returned when a stored object cannot be found. Share
// redemption skips such documents instead of failing the whole response.
var ErrObjectMissing = errors.New("object missing")

// ErrBadSignature is returned when a download URL's signature does not
// verify or its expiry has passed.
var ErrBadSignature = errors.New("invalid or expired signature")

// Store saves document payloads under a root directory and mints signed
// URLs for them. Paths are relative, forward-slash separated, in the form
// "{userID}/{filename}"; anything trying to escape the root is rejected.
type Store struct {
	root    string
	secret  []byte
	baseURL string // absolute prefix of the signed-download endpoint
}

// New creates the root directory if needed and returns a Store.
func New(root, secret, baseURL string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{
		root:    root,
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// cleanPath validates and normalizes an object path.
func (s *Store) cleanPath(path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	cleaned := filepath.ToSlash(filepath.Clean(path))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "\\") {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return cleaned, nil
}

// Put writes an object, creating parent directories as needed.
func (s *Store) Put(path string, r io.Reader) error {
	cleaned, err := s.cleanPath(path)
	if err != nil {
		return err
	}
	full := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(full)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return err
	}
	logger.L.Info("object stored", zap.String("path", cleaned))
	return nil
}

// Remove deletes an object. A missing object is not an error; removal is
// called on cleanup paths where the row matters more than the file.
func (s *Store) Remove(path string) error {
	cleaned, err := s.cleanPath(path)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Open returns a reader for an object.
func (s *Store) Open(path string) (*os.File, error) {
	cleaned, err := s.cleanPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectMissing
	}
	return f, err
}

// sign computes the hex HMAC-SHA256 over path and expiry.
func (s *Store) sign(path string, expUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	io.WriteString(mac, path)
	io.WriteString(mac, "\n")
	io.WriteString(mac, strconv.FormatInt(expUnix, 10))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedURL mints a time-limited download URL for an object. The object
// must exist: redemption treats a missing payload as a skippable document,
// and that check belongs here rather than at download time.
func (s *Store) SignedURL(path string, ttl time.Duration, now time.Time) (string, error) {
	cleaned, err := s.cleanPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(cleaned))); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrObjectMissing
		}
		return "", err
	}
	if ttl <= 0 {
		return "", fmt.Errorf("non-positive ttl %s", ttl)
	}
	exp := now.UTC().Add(ttl).Unix()
	sig := s.sign(cleaned, exp)
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", sig)
	escaped := (&url.URL{Path: cleaned}).EscapedPath()
	return fmt.Sprintf("%s/api/files/%s?%s", s.baseURL, escaped, q.Encode()), nil
}

// Verify checks a download request's signature and expiry against the
// provided clock reading. Comparison is constant time.
func (s *Store) Verify(path, expStr, sig string, now time.Time) error {
	cleaned, err := s.cleanPath(path)
	if err != nil {
		return ErrBadSignature
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := s.sign(cleaned, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	if now.UTC().Unix() > exp {
		return ErrBadSignature
	}
	return nil
}

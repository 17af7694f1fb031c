package storage

import (
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "test-secret", "http://localhost:8080")
	require.NoError(t, err)
	return s
}

func sigParams(t *testing.T, signed string) (path, exp, sig string) {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	path = strings.TrimPrefix(u.Path, "/api/files/")
	return path, u.Query().Get("exp"), u.Query().Get("sig")
}

func TestPutAndOpen(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/KTP_1_123.pdf", strings.NewReader("payload")))

	f, err := s.Open("1/KTP_1_123.pdf")
	require.NoError(t, err)
	defer f.Close()

	b, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
}

func TestOpenMissingObject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Open("1/nope.pdf")
	assert.ErrorIs(t, err, ErrObjectMissing)
}

func TestPutRejectsEscapingPaths(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Put("../outside.txt", strings.NewReader("x")))
	assert.Error(t, s.Put("..", strings.NewReader("x")))
}

func TestSignedURLRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/KK_1_9.pdf", strings.NewReader("x")))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signed, err := s.SignedURL("1/KK_1_9.pdf", time.Hour, now)
	require.NoError(t, err)
	assert.Contains(t, signed, "http://localhost:8080/api/files/")

	path, exp, sig := sigParams(t, signed)
	assert.NoError(t, s.Verify(path, exp, sig, now.Add(30*time.Minute)))
}

func TestSignedURLRequiresObject(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SignedURL("1/missing.pdf", time.Hour, time.Now())
	assert.ErrorIs(t, err, ErrObjectMissing)
}

func TestSignedURLRejectsNonPositiveTTL(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/doc.pdf", strings.NewReader("x")))

	_, err := s.SignedURL("1/doc.pdf", 0, time.Now())
	assert.Error(t, err)
	_, err = s.SignedURL("1/doc.pdf", -time.Minute, time.Now())
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredLink(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/doc.pdf", strings.NewReader("x")))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signed, err := s.SignedURL("1/doc.pdf", time.Minute, now)
	require.NoError(t, err)

	path, exp, sig := sigParams(t, signed)
	assert.NoError(t, s.Verify(path, exp, sig, now.Add(30*time.Second)))
	assert.ErrorIs(t, s.Verify(path, exp, sig, now.Add(2*time.Minute)), ErrBadSignature)
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/doc.pdf", strings.NewReader("x")))
	require.NoError(t, s.Put("1/other.pdf", strings.NewReader("y")))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	signed, err := s.SignedURL("1/doc.pdf", time.Minute, now)
	require.NoError(t, err)
	path, exp, sig := sigParams(t, signed)

	// Wrong path, stretched expiry, mangled signature.
	assert.ErrorIs(t, s.Verify("1/other.pdf", exp, sig, now), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(path, "9999999999", sig, now), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(path, exp, sig+"00", now), ErrBadSignature)
	assert.ErrorIs(t, s.Verify(path, "not-a-number", sig, now), ErrBadSignature)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Put("1/doc.pdf", strings.NewReader("x")))

	require.NoError(t, s.Remove("1/doc.pdf"))
	assert.NoError(t, s.Remove("1/doc.pdf")) // already gone
}

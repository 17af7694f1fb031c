package handler

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNomorSuratFormat(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	n, err := nomorSurat(now)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^SURAT-20250301-[0-9a-f-]{6}$`), n)
}

func TestNomorSuratVaries(t *testing.T) {
	now := time.Now()
	a, err := nomorSurat(now)
	require.NoError(t, err)
	b, err := nomorSurat(now)
	require.NoError(t, err)

	// Display label only, but two letters filed the same day should still
	// differ in the random suffix.
	assert.NotEqual(t, a, b)
}

func TestDisplayFilename(t *testing.T) {
	assert.Equal(t, "KTP_Budi_Santoso", displayFilename("KTP", "Budi Santoso"))
	assert.Equal(t, "KK_Siti", displayFilename("KK", "  Siti "))
}

func TestObjectPathExtension(t *testing.T) {
	now := time.Unix(0, 1700000000000000000)
	assert.Regexp(t, `^1/KTP_1_\d+\.pdf$`, objectPath(1, "KTP", "application/pdf", now))
	assert.Regexp(t, `^2/PasFoto_2_\d+\.jpg$`, objectPath(2, "PasFoto", "image/jpeg", now))
	assert.Regexp(t, `\.png$`, objectPath(3, "KK", "image/png", now))
}

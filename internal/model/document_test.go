package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeAllowed(t *testing.T) {
	ok, known := MimeAllowed("KTP", "application/pdf")
	assert.True(t, ok)
	assert.True(t, known)

	// PasFoto must be an actual photo, never a PDF.
	ok, known = MimeAllowed("PasFoto", "application/pdf")
	assert.False(t, ok)
	assert.True(t, known)

	ok, known = MimeAllowed("PasFoto", "image/jpeg")
	assert.True(t, ok)
	assert.True(t, known)

	ok, known = MimeAllowed("KTP", "text/html")
	assert.False(t, ok)
	assert.True(t, known)

	ok, known = MimeAllowed("Sertifikat", "application/pdf")
	assert.False(t, ok)
	assert.False(t, known)
}

package model

import "time"

// Verification states for a document. A document starts pending, is moved
// to verified or rejected exactly once by an admin, and returns to pending
// when its owner re-uploads the underlying file.
const (
	DocPending  = "pending"
	DocVerified = "verified"
	DocRejected = "rejected"
)

// Document is an identity document uploaded by a user. The binary payload
// lives in the object store under StoragePath; this row is the metadata.
// At most one document per (user, file_type) pair may exist at a time,
// enforced by a unique key on those columns.
//
// Fields:
//  ID                 – primary key identifier.
//  UserID             – owning user.
//  Filename           – display name shown to viewers.
//  StoragePath        – object store path of the current payload.
//  MimeType           – content type recorded at upload.
//  FileType           – declared category (KTP, KK, SKCK, ...).
//  VerificationStatus – one of the Doc* constants above.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Document struct {
	ID                 uint64    // documents.id
	UserID             uint64    // documents.user_id
	Filename           string    // documents.filename
	StoragePath        string    // documents.storage_path
	MimeType           string    // documents.mime_type
	FileType           string    // documents.file_type
	VerificationStatus string    // documents.verification_status
	CreatedAt          time.Time // documents.created_at
	UpdatedAt          time.Time // documents.updated_at
}

// AllowedDocumentTypes maps each accepted file_type category to the MIME
// types permitted for it. Everything accepts scans and PDFs except
// PasFoto, which must be an actual photo.
var AllowedDocumentTypes = map[string][]string{
	"KK":            {"image/jpeg", "image/png", "application/pdf"},
	"KTP":           {"image/jpeg", "image/png", "application/pdf"},
	"SIMA":          {"image/jpeg", "image/png", "application/pdf"},
	"SIMB":          {"image/jpeg", "image/png", "application/pdf"},
	"SIMC":          {"image/jpeg", "image/png", "application/pdf"},
	"SKCK":          {"image/jpeg", "image/png", "application/pdf"},
	"Ijazah":        {"image/jpeg", "image/png", "application/pdf"},
	"AktaKelahiran": {"image/jpeg", "image/png", "application/pdf"},
	"Paspor":        {"image/jpeg", "image/png", "application/pdf"},
	"SuratNikah":    {"image/jpeg", "image/png", "application/pdf"},
	"SuratCerai":    {"image/jpeg", "image/png", "application/pdf"},
	"PasFoto":       {"image/jpeg", "image/png"},
	"CV":            {"image/jpeg", "image/png", "application/pdf"},
	"NPWP":          {"image/jpeg", "image/png", "application/pdf"},
	"SuratKematian": {"image/jpeg", "image/png", "application/pdf"},
	"SuratPindah":   {"image/jpeg", "image/png", "application/pdf"},
}

// MimeAllowed reports whether mime is acceptable for the given file type
// category. The second return value is false when the category itself is
// unknown.
func MimeAllowed(fileType, mime string) (ok bool, known bool) {
	allowed, exists := AllowedDocumentTypes[fileType]
	if !exists {
		return false, false
	}
	for _, m := range allowed {
		if m == mime {
			return true, true
		}
	}
	return false, true
}

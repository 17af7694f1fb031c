package model

import "time"

// ShareState is the position of a share token in its two-phase lifecycle.
// The two windows are decoupled on purpose: the QR code must be scanned
// within a short window to prove the viewer is looking at it right now,
// while the download link that activation unlocks stays usable for days.
type ShareState int

const (
	// ShareActivatable: never activated and the QR window is still open.
	ShareActivatable ShareState = iota
	// ShareActive: activated and the download window is still open.
	ShareActive
	// ShareQRExpired: never activated and the QR window has closed.
	// Terminal; no later clock reading can revive the token.
	ShareQRExpired
	// ShareDownloadExpired: activated but the download window has closed.
	// Terminal.
	ShareDownloadExpired
)

// ShareWindow holds the token and expiry columns common to document shares
// and request shares. Embedded by both.
type ShareWindow struct {
	Token             string     // token column, unique, base64url
	QRExpiresAt       time.Time  // qr_expires_at
	QRActivatedAt     *time.Time // qr_activated_at (null until first scan)
	DownloadExpiresAt time.Time  // download_expires_at
}

// StateAt evaluates the validity decision table against a single reading
// of the authoritative clock. Callers must not re-read the clock between
// this call and the action they take on the result.
func (w *ShareWindow) StateAt(now time.Time) ShareState {
	if w.QRActivatedAt == nil {
		if now.After(w.QRExpiresAt) {
			return ShareQRExpired
		}
		return ShareActivatable
	}
	if now.After(w.DownloadExpiresAt) {
		return ShareDownloadExpired
	}
	return ShareActive
}

// Usable reports whether the token still grants access at the given time.
func (w *ShareWindow) Usable(now time.Time) bool {
	s := w.StateAt(now)
	return s == ShareActivatable || s == ShareActive
}

// Share is a time-boxed grant over a set of the owner's documents. The
// associated document ids live in the share_docs join table.
type Share struct {
	ID     uint64 // shares.id
	UserID uint64 // shares.user_id
	ShareWindow
	CreatedAt time.Time // shares.created_at
}

// RequestShare is the single-request variant of Share: a grant over one
// approved surat pengantar request.
type RequestShare struct {
	ID        uint64 // request_shares.id
	UserID    uint64 // request_shares.user_id
	RequestID uint64 // request_shares.request_id
	ShareWindow
	CreatedAt time.Time // request_shares.created_at
}

// Share window durations. The QR window is short to prove scan intent;
// the download window is long enough to actually fetch the files.
const (
	QRWindow       = time.Minute
	DownloadWindow = 7 * 24 * time.Hour
)

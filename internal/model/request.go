package model

import "time"

// Request statuses. pending is the only non-terminal state; approved and
// rejected are sticky and a second resolution attempt must fail.
const (
	ReqPending  = "pending"
	ReqApproved = "approved"
	ReqRejected = "rejected"
)

// Request types discriminate which jurisdiction foreign key is populated.
const (
	RequestTypeRT        = "RT"
	RequestTypeKelurahan = "Kelurahan"
)

// Request is a citizen's application for a surat pengantar (cover letter)
// addressed to either an RT or a Kelurahan. Exactly one of RTID and
// KelurahanID is set, according to RequestType. Only the admin of the
// matching jurisdiction may resolve it, and only once.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – requesting user.
//  TujuanSurat – free-text purpose of the letter.
//  NomorSurat  – generated display number (SURAT-YYYYMMDD-xxxxxx). Display
//                label only, never used as a lookup key.
//  RequestType – RT or Kelurahan.
//  Status      – one of the Req* constants above.
//  RTID        – target RT (nullable).
//  KelurahanID – target Kelurahan (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Request struct {
	ID          uint64    // requests.id
	UserID      uint64    // requests.user_id
	TujuanSurat string    // requests.tujuan_surat
	NomorSurat  string    // requests.nomor_surat
	RequestType string    // requests.request_type
	Status      string    // requests.status
	RTID        *uint64   // requests.rt_id (nullable)
	KelurahanID *uint64   // requests.kelurahan_id (nullable)
	CreatedAt   time.Time // requests.created_at
	UpdatedAt   time.Time // requests.updated_at
}

// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into the activity log.
package queue

// ActivityQueueName is the durable queue carrying all domain activity
// events. One queue with a type discriminator keeps the consumer trivial.
const ActivityQueueName = "arsipwarga.activity"

// Event types.
const (
	TypeDocumentVerified = "document.verified"
	TypeRequestResolved  = "request.resolved"
	TypeShareActivated   = "share.activated"
)

// ActivityEvent is published whenever a workflow resolves something or a
// share token is activated. It carries enough information for downstream
// consumers to log or notify without querying the primary database.
// Fields irrelevant to a given type are left zero.
type ActivityEvent struct {
	Type string `json:"type"`

	// document.verified
	DocumentID uint64 `json:"document_id,omitempty"`
	Filename   string `json:"filename,omitempty"`

	// request.resolved
	RequestID      uint64 `json:"request_id,omitempty"`
	NomorSurat     string `json:"nomor_surat,omitempty"`
	Tier           string `json:"tier,omitempty"` // RT | Kelurahan
	JurisdictionID uint64 `json:"jurisdiction_id,omitempty"`

	// shared by the workflow events
	Status  string `json:"status,omitempty"`
	AdminID uint64 `json:"admin_id,omitempty"`

	// share.activated
	ShareKind string `json:"share_kind,omitempty"` // documents | request
	Token     string `json:"token,omitempty"`

	OccurredAt string `json:"occurred_at"`
}

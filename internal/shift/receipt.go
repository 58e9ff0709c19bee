package shift

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// failedRunRatio is the receipt-level failure threshold: above it, the run
// status is failed regardless of the verification verdict.
const failedRunRatio = 0.5

type ReceiptStatus string

const (
	ReceiptCompleted    ReceiptStatus = "completed"
	ReceiptWithWarnings ReceiptStatus = "completed_with_warnings"
	ReceiptFailed       ReceiptStatus = "failed"
)

// AuditTrail names the parties behind a session for downstream display.
type AuditTrail struct {
	Director string   `json:"director"`
	Office   string   `json:"office"`
	Lane     string   `json:"lane"`
	SquadID  string   `json:"squad_id"`
	Members  []string `json:"members"`
}

// Receipt is the sealed, immutable summary of a session. Never mutated
// after Seal returns it.
type Receipt struct {
	ID           string        `json:"id"`
	Hash         string        `json:"hash"`
	Status       ReceiptStatus `json:"status"`
	Totals       Totals        `json:"totals"`
	Verification Verification  `json:"verification"`
	Trail        AuditTrail    `json:"trail"`
	SealedAt     time.Time     `json:"sealed_at"`
}

// Seal derives the final run status and fingerprint for a session.
//
//   - failed when more than half the steps failed
//   - completed_with_warnings when verification did not pass
//   - completed otherwise
func Seal(sess *Session, v Verification) Receipt {
	t := sess.Totals
	status := ReceiptCompleted
	switch {
	case t.Steps > 0 && float64(t.Failed)/float64(t.Steps) > failedRunRatio:
		status = ReceiptFailed
	case !v.Passed:
		status = ReceiptWithWarnings
	}

	id := uuid.NewString()
	return Receipt{
		ID:           id,
		Hash:         ReceiptHash(sess.ID, id, t.Completed, v.Passed),
		Status:       status,
		Totals:       t,
		Verification: v,
		Trail: AuditTrail{
			Director: sess.Directive.Director,
			Office:   sess.Directive.Office,
			Lane:     sess.Directive.Lane,
			SquadID:  sess.Squad.ID,
			Members:  sess.Squad.Handles(),
		},
		SealedAt: time.Now(),
	}
}

// ReceiptHash is a pure function of its inputs: FNV-64a over a canonical
// encoding. It is an audit fingerprint, not a tamper-proof seal.
func ReceiptHash(sessionID, receiptID string, completed int, verified bool) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|%t", sessionID, receiptID, completed, verified)
	return fmt.Sprintf("%016x", h.Sum64())
}

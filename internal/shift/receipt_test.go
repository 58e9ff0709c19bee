package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptHashDeterministic(t *testing.T) {
	a := ReceiptHash("sess-1", "rcpt-1", 6, true)
	b := ReceiptHash("sess-1", "rcpt-1", 6, true)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	assert.NotEqual(t, a, ReceiptHash("sess-1", "rcpt-1", 5, true))
	assert.NotEqual(t, a, ReceiptHash("sess-1", "rcpt-1", 6, false))
	assert.NotEqual(t, a, ReceiptHash("sess-2", "rcpt-1", 6, true))
}

func TestSealStatusDerivation(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		failed    int
		verified  bool
		want      ReceiptStatus
	}{
		{"clean", 6, 0, true, ReceiptCompleted},
		{"unverified", 5, 1, false, ReceiptWithWarnings},
		{"majority failed", 2, 4, false, ReceiptFailed},
		{"exactly half failed is not a failed run", 3, 3, false, ReceiptWithWarnings},
		{"no steps", 0, 0, true, ReceiptCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := sessionWith(2, time.Second, [2]int{tc.completed, tc.failed})
			sess.ID = "sess-fixed"
			r := Seal(sess, Verification{Passed: tc.verified})
			assert.Equal(t, tc.want, r.Status)
		})
	}
}

func TestSealCarriesAuditTrail(t *testing.T) {
	sess := sessionWith(2, time.Second, [2]int{2, 0})
	sess.ID = "sess-trail"
	sess.Directive = Directive{Director: "Dir_Research_Prime", Office: "research", Lane: "semi_auto"}
	sess.Squad = Squad{
		ID: "squad-9",
		Members: []Worker{
			{CanonicalID: "research-01"},
			{CanonicalID: "generalist-01"},
		},
	}

	r := Seal(sess, Verification{Passed: true})
	require.NotEmpty(t, r.ID)
	assert.Equal(t, "Dir_Research_Prime", r.Trail.Director)
	assert.Equal(t, "research", r.Trail.Office)
	assert.Equal(t, "semi_auto", r.Trail.Lane)
	assert.Equal(t, "squad-9", r.Trail.SquadID)
	assert.Equal(t, []string{"research-01", "generalist-01"}, r.Trail.Members)
	assert.Equal(t, ReceiptHash(sess.ID, r.ID, sess.Totals.Completed, true), r.Hash)
	assert.False(t, r.SealedAt.IsZero())
}

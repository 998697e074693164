package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusPaid, true},
		{StatusPaid, StatusProcessing, true},
		{StatusProcessing, StatusReady, true},
		{StatusReady, StatusCompleted, true},
		{StatusCompleted, StatusRefunded, true},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusRefunded, true},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusPaid, false},
		{StatusRefunded, StatusCancelled, false},
		{StatusRefunded, StatusRefunded, true},
		{StatusCancelled, StatusCancelled, true},
		{Status("shipped"), StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminalStatusesOnlyReachCancelledOrRefunded(t *testing.T) {
	for _, from := range []Status{StatusCancelled, StatusRefunded} {
		for _, to := range Statuses() {
			if to == StatusCancelled || to == StatusRefunded {
				continue
			}
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_AppendsHistory(t *testing.T) {
	o := &Order{Status: StatusPending, History: []HistoryEntry{{Status: StatusPending}}}

	changed, err := o.Transition(StatusConfirmed, "admin-1", "phone confirmed")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = o.Transition(StatusCancelled, "user-1", "")
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, o.History, 3)
	assert.Equal(t, StatusConfirmed, o.History[1].Status)
	assert.Equal(t, "admin-1", o.History[1].Actor)
	assert.Equal(t, "phone confirmed", o.History[1].Note)
	assert.Equal(t, StatusCancelled, o.History[2].Status)
}

func TestTransition_SameStatusIsNoop(t *testing.T) {
	o := &Order{Status: StatusCancelled}

	changed, err := o.Transition(StatusCancelled, "a", "")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, o.History)
}

func TestTransition_Rejects(t *testing.T) {
	o := &Order{Status: StatusRefunded}
	_, err := o.Transition(StatusPending, "a", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = o.Transition(Status("lost"), "a", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestMarkPaid(t *testing.T) {
	o := &Order{Status: StatusPending, Payment: Payment{Method: "card"}}
	require.NoError(t, o.MarkPaid(Payment{Provider: "kakaopay", PaymentID: "pay_1", VerifiedAmount: 10}, "system:payment"))

	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, PaymentStatusCompleted, o.Payment.Status)
	assert.Equal(t, "card", o.Payment.Method)
	assert.Equal(t, int64(10), o.Payment.VerifiedAmount)

	err := o.MarkPaid(Payment{}, "system:payment")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("ready")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)

	_, err = ParseStatus("READY")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

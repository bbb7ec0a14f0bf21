package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped
		{10, 30 * time.Second}, // capped
		{63, 30 * time.Second}, // shift overflow guarded
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "delivery stream closed", err: errChannelClosed, expected: true},
		{name: "wrapped delivery stream closed", err: fmt.Errorf("consume: %w", errChannelClosed), expected: true},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), expected: true},
		{name: "connection closed", err: errors.New("connection closed"), expected: true},
		{name: "EOF", err: errors.New("unexpected EOF"), expected: true},
		{name: "broken pipe", err: errors.New("write: broken pipe"), expected: true},
		{name: "closed network connection", err: errors.New("use of closed network connection"), expected: true},
		{name: "handler error", err: errors.New("append to sheet: quota exceeded"), expected: false},
		{name: "validation error", err: errors.New("invalid input"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestExpenseEventRoundTrip(t *testing.T) {
	msg := NewExpenseEvent(EventExpenseUpdated, "expense-1", "user-1")

	body, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := ExpenseEventFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, EventExpenseUpdated, decoded.Event)
	assert.Equal(t, "expense-1", decoded.ExpenseID)
	assert.Equal(t, "user-1", decoded.UserID)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestExpenseEventFromJSONRejectsGarbage(t *testing.T) {
	_, err := ExpenseEventFromJSON([]byte("not json"))
	assert.Error(t, err)
}

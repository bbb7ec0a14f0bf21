package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the expense change stream.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseUpdated = "expense.updated"
	EventExpenseDeleted = "expense.deleted"
)

// ExpenseEvent is a lightweight change notification. It carries only
// identifiers; the worker fetches the full row from the database, so a
// stale message never overwrites fresher data.
type ExpenseEvent struct {
	Event     string    `json:"event"`
	ExpenseID string    `json:"expense_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEvent(event, expenseID, userID string) *ExpenseEvent {
	return &ExpenseEvent{
		Event:     event,
		ExpenseID: expenseID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

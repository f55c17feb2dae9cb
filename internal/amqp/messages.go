package amqp

import (
	"encoding/json"
	"time"
)

// Change kinds carried by TimesheetChangedMessage.
const (
	KindWeek       = "week"
	KindTemplate   = "template"
	KindAdjustment = "adjustment"
	KindUser       = "user"
)

// TimesheetChangedMessage signals that a user's timesheet data changed.
// It carries only the owner and the kind of change, the worker fetches
// the current state from the database when rebuilding reports.
type TimesheetChangedMessage struct {
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTimesheetChangedMessage creates a change message for the given owner
func NewTimesheetChangedMessage(userID, kind string) *TimesheetChangedMessage {
	return &TimesheetChangedMessage{
		UserID:    userID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TimesheetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TimesheetChangedMessageFromJSON creates a message from JSON bytes
func TimesheetChangedMessageFromJSON(data []byte) (*TimesheetChangedMessage, error) {
	var msg TimesheetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

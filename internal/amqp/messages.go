package amqp

import (
	"encoding/json"
	"time"
)

// ReceiptEventMessage is a lightweight notification that a receipt changed.
// It carries ids only; consumers fetch the current state themselves, so a
// stale message can never overwrite a newer write.
type ReceiptEventMessage struct {
	Event     string    `json:"event"`
	ReceiptID string    `json:"receipt_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptEventMessage(event, receiptID, userID string) *ReceiptEventMessage {
	return &ReceiptEventMessage{
		Event:     event,
		ReceiptID: receiptID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReceiptEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReceiptEventMessageFromJSON creates a message from JSON bytes.
func ReceiptEventMessageFromJSON(data []byte) (*ReceiptEventMessage, error) {
	var msg ReceiptEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

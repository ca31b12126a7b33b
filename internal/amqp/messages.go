package amqp

import (
	"encoding/json"
	"time"
)

// Operations a mirror message can carry. Upsert covers both create and
// edit: the worker re-reads the entry from storage and rewrites its row.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// EntrySyncMessage asks the worker to reconcile one cash book entry with
// the mirror sheet. It carries only the ID and operation; the worker
// fetches current entry state from storage.
type EntrySyncMessage struct {
	EntryID   string    `json:"entry_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(entryID, op string) *EntrySyncMessage {
	return &EntrySyncMessage{
		EntryID:   entryID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package amqp

import "testing"

func TestEntrySyncMessageRoundTrip(t *testing.T) {
	msg := NewEntrySyncMessage("abc-123", OpUpsert)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := EntrySyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EntryID != "abc-123" || got.Op != OpUpsert {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Fatalf("timestamp not carried")
	}
}

func TestEntrySyncMessageBadJSON(t *testing.T) {
	if _, err := EntrySyncMessageFromJSON([]byte("{not-json")); err == nil {
		t.Fatalf("expected error")
	}
}

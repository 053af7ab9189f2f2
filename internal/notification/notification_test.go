package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/congo-pay/passkey_wallet/internal/logging"
)

func TestLoggerNotifierWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewLoggerNotifier(logging.NewWithWriter(&buf, "info"))

	err := n.Send(context.Background(), Message{Kind: KindTransferReceived, Destination: "bob", Body: "You received 500 from alice", Reference: "tx-1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["kind"] != KindTransferReceived || entry["destination"] != "bob" || entry["reference"] != "tx-1" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestNilLoggerNotifierIsNoop(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func bufferLogger(buf *bytes.Buffer) *Logger {
	l := New(&Config{Level: "DEBUG", Component: "test", JSONFormat: true})
	l.output = buf
	return l
}

func lastEntry(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON entry, got %q: %v", buf.String(), err)
	}
	return entry
}

// TestLogTrailingArgsAreFields verifies trailing args land in the fields
// map, never in the message.
func TestLogTrailingArgsAreFields(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.Info("stream connected", "symbols", 3, "endpoint", "wss://example")

	entry := lastEntry(t, &buf)
	if entry.Message != "stream connected" {
		t.Errorf("Expected the message verbatim, got %q", entry.Message)
	}
	if entry.Fields["symbols"] != float64(3) {
		t.Errorf("Expected symbols field 3, got %v", entry.Fields["symbols"])
	}
	if entry.Fields["endpoint"] != "wss://example" {
		t.Errorf("Expected endpoint field, got %v", entry.Fields["endpoint"])
	}
}

// TestLogMessageNeverFormatted verifies a percent sign in the message
// passes through untouched.
func TestLogMessageNeverFormatted(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.Warn("drawdown beyond 5% threshold", "symbol", "BTC-USDT")

	entry := lastEntry(t, &buf)
	if entry.Message != "drawdown beyond 5% threshold" {
		t.Errorf("Expected the literal message, got %q", entry.Message)
	}
}

// TestLogErrorValuesStringified verifies error values in trailing pairs are
// rendered as their message.
func TestLogErrorValuesStringified(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.Error("fetch failed", "cause", errors.New("connection refused"))

	entry := lastEntry(t, &buf)
	if entry.Fields["cause"] != "connection refused" {
		t.Errorf("Expected the error message as the field value, got %v", entry.Fields["cause"])
	}
}

// TestWithFieldChain verifies chained fields survive into the entry.
func TestWithFieldChain(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.WithField("symbol", "ETH-USDT").WithError(errors.New("timeout")).Warn("slow response")

	entry := lastEntry(t, &buf)
	if entry.Fields["symbol"] != "ETH-USDT" {
		t.Errorf("Expected the chained symbol field, got %v", entry.Fields["symbol"])
	}
	if entry.Fields["error"] != "timeout" {
		t.Errorf("Expected the chained error field, got %v", entry.Fields["error"])
	}
}

// TestLevelFiltering verifies entries under the configured level are
// suppressed.
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "WARN", Component: "test", JSONFormat: true})
	l.output = &buf

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("Expected info suppressed at WARN level, got %q", buf.String())
	}

	l.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("Expected the warning to be written")
	}
}

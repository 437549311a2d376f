package id_test

import (
	"strings"
	"testing"

	"github.com/tavindev/hornet/id"
)

func TestNewWorkerID(t *testing.T) {
	wid := id.NewWorkerID()

	if wid.IsNil() {
		t.Fatal("NewWorkerID returned the nil ID")
	}
	if wid.Prefix() != id.PrefixWorker {
		t.Errorf("prefix = %q, want %q", wid.Prefix(), id.PrefixWorker)
	}
	if !strings.HasPrefix(wid.String(), "wkr_") {
		t.Errorf("String() = %q, want wkr_ prefix", wid.String())
	}
}

func TestParseWorkerID(t *testing.T) {
	wid := id.NewWorkerID()

	parsed, err := id.ParseWorkerID(wid.String())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.String() != wid.String() {
		t.Errorf("round trip = %q, want %q", parsed.String(), wid.String())
	}

	if _, err := id.ParseWorkerID(id.NewProducerID().String()); err == nil {
		t.Error("expected prefix mismatch error for producer ID")
	}
	if _, err := id.ParseWorkerID(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestTokenSource(t *testing.T) {
	ts := id.NewTokenSource()

	first := ts.Next()
	second := ts.Next()

	if first == second {
		t.Fatalf("tokens not unique: %q", first)
	}
	if !strings.HasSuffix(first, ":1") || !strings.HasSuffix(second, ":2") {
		t.Errorf("tokens not counter-suffixed: %q, %q", first, second)
	}
	if strings.SplitN(first, ":", 2)[0] != strings.SplitN(second, ":", 2)[0] {
		t.Error("tokens from one source should share the client UUID")
	}
}

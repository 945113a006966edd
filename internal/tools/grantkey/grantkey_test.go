package grantkey

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/connect-relay/internal/services/relay/callergrant"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

func TestRunRequiresOutput(t *testing.T) {
	if err := Run(nil, bytes.NewReader([]byte{1})); err == nil {
		t.Fatal("expected error when output is nil")
	}
}

func TestRunWritesUsableKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(buf, bytes.NewReader(bytes.Repeat([]byte{7}, 64))); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	private := strings.TrimPrefix(lines[0], "export RELAY_GRANT_PRIVATE_KEY=")
	public := strings.TrimPrefix(lines[1], "export RELAY_GRANT_PUBLIC_KEY=")
	if private == lines[0] || public == lines[1] {
		t.Fatalf("unexpected output format: %q", buf.String())
	}

	signer, err := callergrant.NewSigner("relay", "relay-clients", private, time.Minute)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := callergrant.NewVerifier("relay", "relay-clients", public, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	caller := identity.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	grant, err := signer.Sign(caller)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := verifier.Verify(grant)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != caller {
		t.Fatalf("caller = %s, want %s", got, caller)
	}
}

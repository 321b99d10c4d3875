package mcpquic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMagicBytesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatalf("SendMagicBytes: %v", err)
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Errorf("ValidateMagicBytes: %v", err)
	}
}

func TestValidateMagicBytesRejectsWrongPrefix(t *testing.T) {
	err := ValidateMagicBytes(strings.NewReader("MCP1hello"))
	if !errors.Is(err, ErrInvalidMagicBytes) {
		t.Errorf("err = %v, want ErrInvalidMagicBytes", err)
	}
}

func TestValidateMagicBytesShortRead(t *testing.T) {
	if err := ValidateMagicBytes(strings.NewReader("AL")); err == nil {
		t.Error("expected error on truncated magic bytes")
	}
}

func TestTLSConfigsCarryALPN(t *testing.T) {
	cfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatalf("SelfSignedTLSConfig: %v", err)
	}
	if len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != ALPNProtocolMCP {
		t.Errorf("server NextProtos = %v", cfg.NextProtos)
	}

	ccfg := ClientTLSConfig(true)
	if len(ccfg.NextProtos) != 1 || ccfg.NextProtos[0] != ALPNProtocolMCP {
		t.Errorf("client NextProtos = %v", ccfg.NextProtos)
	}
}

package transport

import "testing"

func TestNewClientTLSConfigDefaultsVerifyOn(t *testing.T) {
	cfg, err := NewClientTLSConfig("", false, nil)
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify = true, want false by default")
	}
}

func TestNewClientTLSConfigInsecureForFixtures(t *testing.T) {
	cfg, err := NewClientTLSConfig("", true, nil)
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify = false, want true when explicitly requested")
	}
}

func TestNewClientTLSConfigUnreadableCAFile(t *testing.T) {
	if _, err := NewClientTLSConfig("/nonexistent/ca.pem", false, nil); err == nil {
		t.Error("expected an error for an unreadable CA file")
	}
}

func TestEnsureALPNAppendsOnce(t *testing.T) {
	cfg, err := NewClientTLSConfig("", false, []string{"existing"})
	if err != nil {
		t.Fatalf("NewClientTLSConfig() error = %v", err)
	}

	withProto := ensureALPN(cfg, "h2")
	if len(withProto.NextProtos) != 2 || withProto.NextProtos[0] != "h2" {
		t.Errorf("NextProtos = %v, want [h2 existing]", withProto.NextProtos)
	}

	idempotent := ensureALPN(withProto, "h2")
	if len(idempotent.NextProtos) != 2 {
		t.Errorf("NextProtos = %v, want unchanged on repeat", idempotent.NextProtos)
	}
}

package internal

import "testing"

func TestNewNumericCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q: length = %d, want 6", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("50 generated codes were all identical")
	}
}

func TestNewNumericCodeRejectsBadLength(t *testing.T) {
	if _, err := NewNumericCode(0); err == nil {
		t.Error("expected an error for zero digits")
	}
}

func TestHashTokenStableAndDistinct(t *testing.T) {
	first := HashToken("token-a")
	if first != HashToken("token-a") {
		t.Error("hash is not deterministic")
	}
	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(first))
	}
	if first == HashToken("token-b") {
		t.Error("distinct tokens hash identically")
	}
}

package internal

import (
	"strings"
	"testing"
)

func TestNewTokenIsUniqueAndWellFormed(t *testing.T) {
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		tok, err := NewToken(SessionTokenSize)
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if !ValidTokenShape(tok, SessionTokenSize) {
			t.Fatalf("token %q has unexpected shape", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewTokenRejectsSmallSizes(t *testing.T) {
	if _, err := NewToken(8); err == nil {
		t.Fatal("expected error for 8-byte token")
	}
}

func TestHashTokenIsStable(t *testing.T) {
	a := HashToken("abc")
	if a != HashToken("abc") {
		t.Fatal("hash must be deterministic")
	}
	if a == HashToken("abd") {
		t.Fatal("different inputs must hash differently")
	}
	if len(a) != 64 || strings.ToLower(a) != a {
		t.Fatalf("expected 64 lowercase hex chars, got %q", a)
	}
}

func FuzzValidTokenShape(f *testing.F) {
	f.Add("")
	f.Add("!!!not-base64!!!")
	f.Add(strings.Repeat("A", 43))
	f.Fuzz(func(t *testing.T, in string) {
		_ = ValidTokenShape(in, SessionTokenSize)
	})
}

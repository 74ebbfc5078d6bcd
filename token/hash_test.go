package token

import "testing"

func TestHashDeterministic(t *testing.T) {
	tok, err := Generate(32)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	first := Hash(tok)
	second := Hash(tok)
	if first != second {
		t.Fatalf("Hash not deterministic: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("Hash length = %d, want 64 hex chars", len(first))
	}
}

func TestHashDistinctInputs(t *testing.T) {
	for i := 0; i < 50; i++ {
		a, err := Generate(32)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		b, err := Generate(32)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if a != b && Hash(a) == Hash(b) {
			t.Fatalf("collision for distinct tokens %q and %q", a, b)
		}
	}
}

func TestVerify(t *testing.T) {
	tok, err := Generate(32)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	stored := Hash(tok)

	if !Verify(tok, stored) {
		t.Fatal("Verify rejected the matching token")
	}
	if Verify(tok+"x", stored) {
		t.Fatal("Verify accepted a tampered token")
	}
	if Verify(tok, stored[:len(stored)-1]) {
		t.Fatal("Verify accepted a truncated hash")
	}
	if Verify("", stored) {
		t.Fatal("Verify accepted an empty token")
	}
}

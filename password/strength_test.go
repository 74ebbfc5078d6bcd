package password

import (
	"errors"
	"testing"
)

func TestValidateStrength(t *testing.T) {
	policy := Policy{MinLength: 10}

	cases := []struct {
		name     string
		password string
		wantWeak bool
	}{
		{"all classes present", "Abcdef1!xyz", false},
		{"exactly min length", "Abcdefg1!x", false},
		{"too short", "Ab1!xy", true},
		{"missing lowercase", "ABCDEFG1!X", true},
		{"missing uppercase", "abcdefg1!x", true},
		{"missing digit", "Abcdefgh!x", true},
		{"missing special", "Abcdefgh1x", true},
		{"empty", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStrength(tc.password, policy)
			if tc.wantWeak && !errors.Is(err, ErrTooWeak) {
				t.Fatalf("ValidateStrength(%q) = %v, want ErrTooWeak", tc.password, err)
			}
			if !tc.wantWeak && err != nil {
				t.Fatalf("ValidateStrength(%q) = %v, want nil", tc.password, err)
			}
		})
	}
}

func TestValidateStrengthIsPure(t *testing.T) {
	// Same input, same verdict, any number of times.
	for i := 0; i < 5; i++ {
		if err := ValidateStrength("Abcdef1!xyz", Policy{MinLength: 10}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestValidateStrengthZeroPolicyFallsBack(t *testing.T) {
	if err := ValidateStrength("Abcdefg1!x", Policy{}); err != nil {
		t.Fatalf("default policy rejected a 10-char compliant password: %v", err)
	}
	if err := ValidateStrength("Ab1!xy", Policy{}); !errors.Is(err, ErrTooWeak) {
		t.Fatalf("default policy accepted a short password: %v", err)
	}
}

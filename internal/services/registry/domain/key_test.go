package domain

import (
	"errors"
	"testing"
)

func TestNewKeyLengthAndAlphabet(t *testing.T) {
	key, err := NewKey(DomainKeySize)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if len(key) != DomainKeySize {
		t.Fatalf("expected %d chars, got %d", DomainKeySize, len(key))
	}
	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		default:
			t.Fatalf("unexpected character %q in key", r)
		}
	}
}

func TestNewKeyRejectsNonPositiveLength(t *testing.T) {
	if _, err := NewKey(0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewKey(-1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewKeyIsNotConstant(t *testing.T) {
	a, err := NewKey(DomainKeySize)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	b, err := NewKey(DomainKeySize)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if a == b {
		t.Fatal("two generated keys should not collide")
	}
}

package prompt

import (
	"testing"

	kperrors "kickpass/errors"
)

func TestNone(t *testing.T) {
	_, err := None(false, "test")
	if !kperrors.IsKind(err, kperrors.NoPrompt) {
		t.Errorf("None() error = %v, want NoPrompt", err)
	}
}

func TestFunc_Signature(t *testing.T) {
	var f Func = func(confirm bool, purpose string) ([]byte, error) {
		if purpose != "a/b" {
			t.Errorf("purpose = %q, want %q", purpose, "a/b")
		}
		return []byte("secret"), nil
	}

	got, err := f(true, "a/b")
	if err != nil {
		t.Fatalf("f() error = %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("f() = %q, want %q", got, "secret")
	}
}

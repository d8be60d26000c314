package buffer

import "testing"

func TestNewPassword_Cap(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	defer b.Close()

	if b.Cap() != PasswordMax {
		t.Errorf("Cap() = %d, want %d", b.Cap(), PasswordMax)
	}
}

func TestNewMetadata_Cap(t *testing.T) {
	b, err := NewMetadata()
	if err != nil {
		t.Fatalf("NewMetadata() error = %v", err)
	}
	defer b.Close()

	if b.Cap() != MetadataMax {
		t.Errorf("Cap() = %d, want %d", b.Cap(), MetadataMax)
	}
}

func TestSetAndBytes(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	defer b.Close()

	if err := b.Set([]byte("hunter2")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := b.String(); got != "hunter2" {
		t.Errorf("String() = %q, want %q", got, "hunter2")
	}
}

func TestSet_ShorterValueZeroesTail(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	defer b.Close()

	if err := b.Set([]byte("a-long-password")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := b.Set([]byte("short")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := b.String(); got != "short" {
		t.Errorf("String() = %q, want %q", got, "short")
	}
}

func TestSet_TooLong(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	defer b.Close()

	overflow := make([]byte, PasswordMax)
	for i := range overflow {
		overflow[i] = 'x'
	}
	if err := b.Set(overflow); err == nil {
		t.Fatal("Set() with overflowing value should fail")
	}
}

func TestWipe(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	defer b.Close()

	if err := b.Set([]byte("secret")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	b.Wipe()
	if got := b.String(); got != "" {
		t.Errorf("String() after Wipe() = %q, want empty", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	b, err := NewPassword()
	if err != nil {
		t.Fatalf("NewPassword() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
}

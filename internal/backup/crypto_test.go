package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpen(t *testing.T) {
	plaintext := []byte("SQLite format 3\x00 member and weight rows")

	sealed, err := Seal(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("member and weight")) {
		t.Error("sealed output contains plaintext")
	}

	got, err := Open(sealed, "correct horse")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}
}

func TestSealUsesFreshSalt(t *testing.T) {
	a, err := Seal([]byte("same"), "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b, err := Seal([]byte("same"), "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("two seals share a salt")
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "right")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(sealed, "wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestOpenTampered(t *testing.T) {
	sealed, err := Seal([]byte("secret data"), "pw")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[saltSize+nonceSize+1] ^= 0xFF
	if _, err := Open(sealed, "pw"); err == nil {
		t.Fatal("expected error with tampered ciphertext")
	}
}

func TestOpenTooShort(t *testing.T) {
	if _, err := Open([]byte("too short"), "pw"); !errors.Is(err, errTooShort) {
		t.Fatalf("err = %v, want errTooShort", err)
	}
}

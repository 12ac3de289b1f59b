package utils

import "testing"

func TestHashPasswordStoredAsStringStillCompares(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	// The user record stores the hash in a string column; the conversion
	// must not corrupt it.
	stored := string(hash)
	if err := ComparePassword(stored, "s3cret-pw"); err != nil {
		t.Errorf("ComparePassword after string round-trip: %v", err)
	}
	if err := ComparePassword(stored, "wrong-pw"); err == nil {
		t.Error("expected mismatch for the wrong password")
	}
}

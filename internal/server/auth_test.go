package server

import "testing"

func TestHashAndVerifyKey(t *testing.T) {
	hash, err := HashKey("open sesame")
	if err != nil {
		t.Fatalf("HashKey() error = %v", err)
	}
	if hash == "open sesame" {
		t.Fatal("key stored in the clear")
	}
	if !VerifyKey(hash, "open sesame") {
		t.Error("correct key rejected")
	}
	if VerifyKey(hash, "open says me") {
		t.Error("wrong key accepted")
	}
	if VerifyKey("", "open sesame") {
		t.Error("empty hash accepted a key")
	}
}

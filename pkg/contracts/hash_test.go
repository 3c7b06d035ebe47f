package contracts

import (
	"strings"
	"testing"
)

func TestContentHashStableAcrossRepresentation(t *testing.T) {
	type rec struct {
		B string `json:"b"`
		A string `json:"a"`
	}
	structHash, err := ContentHash(rec{A: "1", B: "2"})
	if err != nil {
		t.Fatalf("struct hash: %v", err)
	}
	mapHash, err := ContentHash(map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("map hash: %v", err)
	}
	if structHash != mapHash {
		t.Fatalf("canonical hash differs across representations: %s vs %s", structHash, mapHash)
	}
	if !strings.HasPrefix(structHash, "sha256:") {
		t.Fatalf("hash missing sha256 prefix: %s", structHash)
	}
}

func TestContentHashSensitiveToContent(t *testing.T) {
	h1, err := ContentHash(map[string]string{"a": "1"})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ContentHash(map[string]string{"a": "2"})
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("different content produced identical hashes")
	}
}

package solana_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmerrifield20/anchorlog/internal/ledger/solana"
)

func TestKeypairRoundTrip(t *testing.T) {
	s, err := solana.GenerateSigner()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := s.MarshalKeypair()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := solana.LoadKeypair(path)
	if err != nil {
		t.Fatalf("LoadKeypair: %v", err)
	}
	if loaded.Address() != s.Address() {
		t.Errorf("address = %s, want %s", loaded.Address(), s.Address())
	}
}

func TestLoadKeypair_errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"short":     "[1,2,3]",
		"not json":  "hello",
		"bad byte":  "[256]",
		"not array": `{"k":1}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := solana.LoadKeypair(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := solana.LoadKeypair(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

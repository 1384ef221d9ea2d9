package digest_test

import (
	"errors"
	"testing"

	"github.com/jmerrifield20/anchorlog/internal/digest"
)

func TestCompute_deterministic(t *testing.T) {
	a, err := digest.Compute("deploy", "info", []byte(`{"v":1}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := digest.Compute("deploy", "info", []byte(`{"v":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same input produced %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestCompute_sensitiveToEveryField(t *testing.T) {
	base, _ := digest.Compute("deploy", "info", []byte(`{"v":1}`))

	cases := []struct {
		name      string
		eventType string
		severity  string
		data      string
	}{
		{"data", "deploy", "info", `{"v":2}`},
		{"event_type", "rollback", "info", `{"v":1}`},
		{"severity", "deploy", "warn", `{"v":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := digest.Compute(tc.eventType, tc.severity, []byte(tc.data))
			if err != nil {
				t.Fatal(err)
			}
			if got == base {
				t.Errorf("changing %s did not change the digest", tc.name)
			}
		})
	}
}

func TestCompute_knownVector(t *testing.T) {
	// sha256(`deploy:info:{"v":1}`)
	const want = "07b472b5641d88d6c8139cfeaafb0106b17a088bf4c4f181045e97d1014b0a1a"

	for _, in := range []string{`{"v":1}`, ` { "v" : 1 } `, "{\n  \"v\": 1\n}"} {
		got, err := digest.Compute("deploy", "info", []byte(in))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Compute(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonical_sortsKeysAtEveryDepth(t *testing.T) {
	in := []byte(`{"b":{"z":1,"a":[3,{"y":true,"x":null}]},"a":"s"}`)
	want := `{"a":"s","b":{"a":[3,{"x":null,"y":true}],"z":1}}`

	got, err := digest.Canonical(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("Canonical():\n got %s\nwant %s", got, want)
	}
}

func TestCanonical_keyOrderDoesNotAffectDigest(t *testing.T) {
	a, _ := digest.Compute("login", "warn", []byte(`{"user":"alice","ip":"10.0.0.1"}`))
	b, _ := digest.Compute("login", "warn", []byte(`{"ip":"10.0.0.1","user":"alice"}`))
	if a != b {
		t.Errorf("key order changed digest: %q vs %q", a, b)
	}
}

func TestCanonical_preservesNumberTokens(t *testing.T) {
	got, err := digest.Canonical([]byte(`{"big":12345678901234567890,"f":1.50}`))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"big":12345678901234567890,"f":1.50}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonical_emptyIsNull(t *testing.T) {
	got, err := digest.Canonical(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "null" {
		t.Errorf("got %s, want null", got)
	}
}

func TestCompute_invalidPayload(t *testing.T) {
	_, err := digest.Compute("deploy", "info", []byte(`{"v":`))
	if !errors.Is(err, digest.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestCanonical_duplicateKeysKeepLast(t *testing.T) {
	got, err := digest.Canonical([]byte(`{"v":1,"a":{"x":1,"x":[2]},"v":2}`))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a":{"x":[2]},"v":2}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}

	dup, _ := digest.Compute("deploy", "info", []byte(`{"v":1,"v":2}`))
	last, _ := digest.Compute("deploy", "info", []byte(`{"v":2}`))
	if dup != last {
		t.Errorf("duplicate-key digest %q should equal digest of the stored form %q", dup, last)
	}
}

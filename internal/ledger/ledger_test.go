package ledger_test

import (
	"errors"
	"testing"

	"github.com/jmerrifield20/anchorlog/internal/ledger"
)

func TestMemo(t *testing.T) {
	if got := ledger.Memo("abc"); got != "LOG:abc" {
		t.Errorf("Memo() = %q, want LOG:abc", got)
	}
}

func TestExtractTaggedHash(t *testing.T) {
	cases := []struct {
		name   string
		lines  []string
		want   string
		wantOK bool
	}{
		{
			name:   "solana memo log line",
			lines:  []string{"Program MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr invoke [1]", `Program log: Memo (len 68): "LOG:deadbeef"`},
			want:   "deadbeef",
			wantOK: true,
		},
		{
			name:   "space terminated",
			lines:  []string{"LOG:cafe trailing"},
			want:   "cafe",
			wantOK: true,
		},
		{
			name:   "end of line",
			lines:  []string{"LOG:0011"},
			want:   "0011",
			wantOK: true,
		},
		{
			name:   "first tagged line wins",
			lines:  []string{"nothing", "LOG:first", "LOG:second"},
			want:   "first",
			wantOK: true,
		},
		{
			name:   "no tag",
			lines:  []string{"Program log: hello"},
			wantOK: false,
		},
		{
			name:   "empty",
			lines:  nil,
			wantOK: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ledger.ExtractTaggedHash(tc.lines)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("hash = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestVerifyError_unwraps(t *testing.T) {
	err := &ledger.VerifyError{Reference: "x", Err: ledger.ErrInvalidReference}
	if !errors.Is(err, ledger.ErrInvalidReference) {
		t.Error("VerifyError should unwrap to its cause")
	}
	var ve *ledger.VerifyError
	if !errors.As(error(err), &ve) || ve.Reference != "x" {
		t.Error("errors.As should recover the VerifyError")
	}
}

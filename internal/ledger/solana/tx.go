package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// MemoProgramID is the SPL Memo program address.
const MemoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

const (
	pubkeySize    = 32
	signatureSize = 64
)

var memoProgramKey = mustDecodeKey(MemoProgramID)

func mustDecodeKey(s string) []byte {
	b, err := base58.Decode(s)
	if err != nil || len(b) != pubkeySize {
		panic(fmt.Sprintf("invalid program key %q", s))
	}
	return b
}

// buildMemoTx returns a signed legacy transaction carrying a single Memo
// instruction paid for by signer. blockhash is base58 encoded.
func buildMemoTx(signer *Signer, blockhash, memo string) (tx []byte, signature []byte, err error) {
	bh, err := base58.Decode(blockhash)
	if err != nil || len(bh) != pubkeySize {
		return nil, nil, fmt.Errorf("invalid recent blockhash %q", blockhash)
	}

	msg := make([]byte, 0, 3+1+2*pubkeySize+pubkeySize+8+len(memo))
	// Header: one required signature (payer), no read-only signers, one
	// read-only unsigned account (the memo program).
	msg = append(msg, 1, 0, 1)
	msg = appendCompactU16(msg, 2)
	msg = append(msg, signer.PublicKey()...)
	msg = append(msg, memoProgramKey...)
	msg = append(msg, bh...)
	// Instructions.
	msg = appendCompactU16(msg, 1)
	msg = append(msg, 1) // program id index
	msg = appendCompactU16(msg, 0)
	msg = appendCompactU16(msg, len(memo))
	msg = append(msg, memo...)

	sig := signer.Sign(msg)

	tx = make([]byte, 0, 1+signatureSize+len(msg))
	tx = appendCompactU16(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)
	return tx, sig, nil
}

// appendCompactU16 appends n in Solana's short-vec encoding.
func appendCompactU16(b []byte, n int) []byte {
	for {
		elem := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}

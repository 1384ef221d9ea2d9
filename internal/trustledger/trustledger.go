// Package trustledger implements an append-only, hash-chained memo log that
// anchorlog can use as its tamper-evident ledger when no external chain is
// configured.
//
// The chain begins with a well-known genesis entry whose Hash equals GenesisHash
// (64 hex zeros). Every subsequent entry records the SHA-256 of its predecessor,
// making any rewrite of an anchored memo detectable via Verify.
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and development.
//   - PostgresLedger: durable, for production use.
package trustledger

// Package stores provides the Redis-backed records of the reference
// verification service: OTP challenges, accounts, and verified-identifier
// markers.
//
// # Design
//
// OTP challenges are versioned, binary-encoded records with a TTL, consumed
// by a Lua script that validates and deletes (or re-saves with one more
// attempt) in a single round trip. Accounts are hashes created with a
// create-if-absent script. Secret comparisons use constant-time compare.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control. It does NOT
// generate codes or tokens, enforce rate limits, or decide which error a
// client sees; authserver maps these sentinel errors to wire codes.
//
// # What this package must NOT do
//
//   - Import goAuthFlow or any sibling internal package.
//   - Store or log plaintext codes, auth tokens, or passwords.
package stores

// Package jwt issues and verifies the session tokens that complete a flow.
// Tokens are signed with Ed25519 or HS256 and carry the account id and the
// method that proved the identifier.
package jwt

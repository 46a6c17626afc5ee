// Package internal contains helpers private to goAuthFlow: random codes and
// tokens, and the hash stored in place of them.
//
// # Sub-packages
//
//   - config: process configuration for the binaries (godotenv + viper)
//   - logging: zap logger construction per environment
//   - rate: Redis-backed fixed-window rate limits
//   - stores: Redis-backed challenge, account, and verified-marker records
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthFlow API.
//   - Be imported by any package outside the goAuthFlow module.
package internal

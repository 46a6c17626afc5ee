// Package rate provides the Redis-backed fixed-window counters the reference
// service uses to throttle OTP requests and failed password logins.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - afro:   OTP requests per identifier
//   - afroip: OTP requests per client IP
//   - afrl:   failed logins per identifier
//
// # What this package must NOT do
//
//   - Decide the user-facing error; callers map [ErrRateLimited].
//   - Be imported outside the goAuthFlow module.
package rate

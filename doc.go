// Package goAuthFlow drives passwordless-first login and signup flows: an
// identifier step, an optional one-time-code step, and an optional password
// step, ending with a session token handed to a [SessionPersister].
//
// The flow is a pure state machine ([Transition]) wrapped by a [Controller]
// that performs the remote calls, tracks the resend [Cooldown], and discards
// results that arrive after the user backed out. Controllers are created
// from an [Engine], which is assembled once through [Builder].
//
// # Architecture boundaries
//
// goAuthFlow is the public surface. It exposes [Engine], [Builder], [Config],
// [Controller], the [Remote] and [SessionPersister] contracts, and value types
// ([State], [Result], [AuthError], MetricsSnapshot). Identifier classification
// lives in identifier/, password rules in password/. HTTP transports, cookies
// and the reference service live in client/, session/, middleware/ and
// authserver/, which import this package and never the other way round.
//
// # What this package must NOT do
//
//   - Perform network I/O itself. Every remote effect goes through [Remote]
//     or [SessionPersister].
//   - Keep presentation data (input buffers, loading flags) in [State].
//   - Log raw identifiers, codes, passwords, or session tokens.
//
// # Flow summary
//
//	login  + email: identifier -> password -> done
//	login  + phone: identifier -> otp -> done
//	signup + email: identifier -> otp -> password -> done
//	signup + phone: identifier -> otp -> done
package goAuthFlow

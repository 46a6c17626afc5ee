// Package authserver is the reference verification and authentication
// service behind the goAuthFlow controllers.
//
// [Service] implements goAuthFlow.Remote directly, so it can be wired
// in-process, and [Handler] exposes the same operations as JSON over HTTP
// for the client package:
//
//	POST   /api/auth/otp/request   {identifier, method, region, purpose}
//	POST   /api/auth/otp/verify    {identifier, otp, verificationId, authToken}
//	POST   /api/auth/login         {identifier, password}
//	POST   /api/auth/signup        {identifier, password}
//	POST   /api/auth/session       {token}  sets the authToken cookie
//	DELETE /api/auth/session                clears it
//	GET    /api/auth/google[/callback]      optional Google sign-in
//	GET    /api/dev/otp?verificationId=     development code echo
//
// Failures are written as {"code","message","field"}.
//
// # Flow semantics
//
//   - Login by OTP requires an existing account.
//   - Signup by phone creates a passwordless account when the code is
//     verified and returns a session.
//   - Signup by email marks the address verified for VerifiedTTL; the
//     following signup call sets the password and returns a session.
//   - A challenge accepts MaxVerifyAttempts wrong codes before it is
//     destroyed.
//
// # Architecture boundaries
//
// Persistence lives in internal/stores and throttling in internal/rate. This
// package generates codes, maps store errors to wire codes, and owns the
// HTTP surface.
//
// # What this package must NOT do
//
//   - Log plaintext codes, auth tokens, or passwords. [LogSender] is the one
//     development-only exception.
//   - Report whether an account exists on the password login path.
package authserver

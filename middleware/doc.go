// Package middleware exposes net/http middleware built on the authToken
// session cookie.
//
// # Guards
//
//   - [RouteGuard]: page-level redirects between protected pages and the
//     login/signup pages.
//   - [RequireSession]: 401 for API requests without a valid session.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into cookie reads and token checks.
// Token verification is delegated to a [TokenValidator] (normally
// *jwt.Manager).
//
// # What this package must NOT do
//
//   - Issue tokens or set cookies.
//   - Access Redis.
package middleware

// Package client is the HTTP transport between a goAuthFlow.Controller and
// the verification service. Service failures arrive as JSON
// {code, message, field} and become *goAuthFlow.AuthError; transport
// failures and 5xx responses without a body become network errors.
//
// Only the idempotent session calls are retried.
package client

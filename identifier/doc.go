// Package identifier classifies raw user input as an email address or a phone
// number before any authentication call is made.
//
// # Architecture boundaries
//
// Classification is pure: no I/O, no allocation beyond the returned strings,
// no dependency on the flow controller. The controller and the HTTP service
// share these rules so a value accepted by one is accepted by the other.
//
// # What this package must NOT do
//
//   - Perform network lookups (MX records, carrier checks).
//   - Accept anything the email or phone patterns reject.
package identifier

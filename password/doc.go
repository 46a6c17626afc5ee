// Package password owns everything the flow knows about passwords: the
// creation-time requirement checklist, the lighter login-time length rule,
// confirmation matching, and Argon2id hashing for the reference service.
//
// # Requirement checklist
//
// [CheckRequirements] evaluates five independent rules against the full
// string so front ends can render live feedback while the user types:
//
//	HasMinLength   at least 8 characters
//	HasUppercase   at least one A-Z
//	HasLowercase   at least one a-z
//	HasNumber      at least one 0-9
//	HasSpecialChar at least one of !@#$%^&*(),.?":{}|<>
//
// Login passwords are only checked with [ValidateLoginPassword] (8 to 100
// characters); existing passwords are never re-validated against creation rules.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goAuthFlow package.
//   - Log plaintext passwords.
package password

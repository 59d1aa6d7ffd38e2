// Package auth provides authentication and authorisation for accounthub.
//
// It implements the credential and token subsystem behind the user-facing
// HTTP API:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Signed, expiring session tokens (HS256 JWT) carried in an HTTP-only cookie
//   - Password-change invalidation: sessions issued before the principal's
//     last password change are rejected without a server-side session registry
//   - One-time tokens for password reset and email verification, stored only
//     as SHA-256 digests with a type tag and expiry on the principal record
//   - Flat, database-backed roles ("USER", "SUPER ADMIN") with set-membership
//     access checks and no hierarchy
//
// One-time tokens are single-use and typed: at most one outstanding token
// per principal, a new issuance overwrites the previous one, and validation
// requires both a digest match and a type match. Expired tokens are cleared
// lazily on the first validation attempt after expiry; there is no
// background sweep.
package auth

// Package auth provides user accounts, password hashing and JWT access
// tokens.
//
// Passwords are hashed with Argon2id and stored in PHC string format.
// Access tokens are HS256-signed JWTs validated by signature only, so
// request authentication never hits the database. Accounts carry a role
// (user or admin); mutating parking endpoints require a valid token and
// admin-only endpoints additionally require the admin role.
package auth

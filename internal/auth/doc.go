// Package auth issues and validates the bearer tokens that guard the
// mutating Gray Hearth API endpoints.
//
// There are no user accounts. An operator mints a token with
// `hearth token` using the shared HS256 secret from security.jwt.secret;
// the token carries a subject and one of three roles:
//
//	viewer     read stoves and recipes
//	operator   light stoves and load items
//	admin      also place and remove stoves and edit world blocks
//
// Role permissions are a static table, no database lookup.
package auth

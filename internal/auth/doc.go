// Package auth validates bearer tokens on the Safehouse REST surface.
//
// Tokens are HS256 JWTs carrying a subject (the user id) and a role.
// Issuing tokens to end users belongs to the account service; this package
// only mints tokens for operators and tests, and checks them on every
// request.
//
// Two roles exist. Users may read telemetry and send device commands;
// admins may additionally provision devices and manage keycards.
package auth

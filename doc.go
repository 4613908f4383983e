// Package auth provides the authentication and authorization core of the
// user account backend: bcrypt password hashing, HS256 bearer tokens,
// identity context helpers and the AccountService that registers users,
// logs them in and manages their profiles.
//
// Storage:
//   - Users is the store contract. Stores enforce uniqueness of email and
//     employee id through unique indexes and report violations as
//     ErrDuplicateRecord, which AccountService turns into ErrConflict.
//     The repository package implements it with Bun (sqlite, postgres) and
//     repository/mongousers with MongoDB.
//
// Guards:
//   - middleware/jwtware holds the fiber handlers that authenticate a bearer
//     token, resolve the live user and authorize it against a role set.
//
// Errors:
//   - Every error returned by this package is an *Error with a Category.
//     HTTPStatus maps the category to a status code and PublicMessage
//     hides internal details from clients.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by AccountService
//     to describe registration, login, profile and deletion events. Sinks
//     run best-effort (errors are logged).
package auth

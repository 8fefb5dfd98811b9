// Package iam centralizes identity and access management for the hulugan API.
//
// It owns:
//   - Authentication (session cookie / bearer token on the request path)
//   - Role resolution (user_roles lookup, absence means viewer)
//   - Authorization (read-only Casbin policy checks)
//   - Magic-link login issue/redeem and session lifecycle
//
// Roles are resolved fresh on every authenticated request. There is no
// per-principal role cache: a demotion takes effect on the demoted user's
// very next request.
package iam

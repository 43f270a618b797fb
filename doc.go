// Package todoapi implements authentication, authorization, and the
// todo/user domain behind the todo HTTP API: RS256 token issuance and
// validation, credential verification, per-record ownership checks, and
// a uniform error vocabulary shared by the HTTP layer.
package todoapi

package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload carried by the bearer token on every authenticated
// request. Elevated callers (staff/service accounts) are exempt from the
// per-user extraction quota in §4.3.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Elevated bool   `json:"elevated"`
	jwt.RegisteredClaims
}

// RequestContext is the ambient per-request identity threaded through
// service calls in place of a full auth subsystem; real credential issuance
// and storage are an external collaborator's responsibility.
type RequestContext struct {
	UserID   string
	Elevated bool
}

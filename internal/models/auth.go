package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller, passed explicitly to every call that needs it
type Principal struct {
	AccountID   string
	Username    string
	Authorities []string
}

// HasAnyAuthority reports whether the principal holds one of the authorities
func (p *Principal) HasAnyAuthority(authorities ...string) bool {
	for _, held := range p.Authorities {
		for _, want := range authorities {
			if held == want {
				return true
			}
		}
	}
	return false
}

// TokenClaims are the session token claims
type TokenClaims struct {
	Type        string   `json:"type"`
	AccountID   string   `json:"account_id"`
	Username    string   `json:"username"`
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims back into a principal
func (c *TokenClaims) Principal() *Principal {
	return &Principal{
		AccountID:   c.AccountID,
		Username:    c.Username,
		Authorities: c.Authorities,
	}
}

// Credentials is the login request payload
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String never includes the password
func (c Credentials) String() string {
	return "Credentials{username=" + c.Username + "}"
}

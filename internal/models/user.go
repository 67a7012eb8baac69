package models

import "strings"

// Principal is the authenticated caller. Accounts live with the identity
// provider; this service only sees the verified token claims.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Identity is what the payment description shows for the principal.
func (p *Principal) Identity() string {
	if p == nil {
		return ""
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		return email
	}
	return p.UserID
}

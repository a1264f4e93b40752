package services

import "github.com/knasante/hostelpay-gobackend/internal/models"

// AuthContext is the authenticated caller's identity, produced by the
// HTTP auth middleware and passed explicitly into every operation that
// needs it. The core never reads ambient session state.
type AuthContext struct {
	UserID string
	Role   string
}

func (a AuthContext) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

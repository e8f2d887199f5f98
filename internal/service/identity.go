package service

import "github.com/zaki-44/bio-hackathon/internal/model"

// Identity is the resolved caller handed to operations. How it was obtained
// (bearer token or session cookie) is the HTTP layer's business.
type Identity struct {
	UserID   uint       `json:"user_id"`
	Username string     `json:"username"`
	Role     model.Role `json:"user_type"`
}

// Require fails unless the identity holds one of roles.
func (id *Identity) Require(roles ...model.Role) error {
	if id == nil || id.UserID == 0 {
		return ErrUnauthenticated
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return forbiddenf("this action requires one of the following user types: %s", joinRoles(roles))
}

func (id *Identity) Is(role model.Role) bool {
	return id != nil && id.Role == role
}

// reviewer returns the id for best-effort audit columns, nil when anonymous.
func (id *Identity) reviewer() *uint {
	if id == nil || id.UserID == 0 {
		return nil
	}
	v := id.UserID
	return &v
}

func joinRoles(roles []model.Role) string {
	s := ""
	for i, r := range roles {
		if i > 0 {
			s += ", "
		}
		s += string(r)
	}
	return s
}

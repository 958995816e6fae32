package model

// Role is the access level of a user account
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Label is the display name used in responses and logs
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleModerator:
		return "Moderator"
	default:
		return string(r)
	}
}

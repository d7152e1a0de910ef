package model

// Roles recognized by the booking service.
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleReceptionist = "receptionist"
	RoleClient       = "client"
)

// StaffRoles are the roles allowed into the staff area.
var StaffRoles = []string{RoleAdmin, RoleManager, RoleReceptionist}

// Profile is the current user as reported by GET /api/auth/me.
// The upstream API is authoritative for every field; a cached copy may be stale.
type Profile struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password"`
	ProfilePhotoURL    string `json:"profile_photo_url,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

func (p Profile) IsStaff() bool {
	for _, role := range StaffRoles {
		if p.Role == role {
			return true
		}
	}
	return false
}

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleReceptionist, RoleClient:
		return true
	}
	return false
}

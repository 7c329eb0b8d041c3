package auth

import "strings"

// Role is the coarse permission level stored on a profile.
type Role string

const (
	RoleStandard       Role = "standard"
	RoleCommunityAdmin Role = "community_admin"
	RoleSuperAdmin     Role = "super_admin"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleCommunityAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Capability names a gated action.
type Capability string

const (
	CapManageVideoAccess Capability = "manage_ai_video_access"
	CapGenerateVideo     Capability = "generate_ai_video"
	CapCreateCommunity   Capability = "create_community"
	CapManageCoins       Capability = "manage_coins"
	CapManageRoles       Capability = "manage_roles"
)

// Capabilities lists every capability known to the gate.
var Capabilities = []Capability{
	CapManageVideoAccess,
	CapGenerateVideo,
	CapCreateCommunity,
	CapManageCoins,
	CapManageRoles,
}

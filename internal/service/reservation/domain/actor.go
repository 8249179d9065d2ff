package domain

// RoleAdmin 是管理员角色，由网关通过 X-User-Role 注入
const RoleAdmin = "ROLE_ADMIN"

// Actor 是调用方身份，网关已完成认证，这里直接信任。
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess 管理员或本人
func (a Actor) CanAccess(r *Reservation) bool {
	return a.IsAdmin() || r.IsOwnedBy(a.UserID)
}

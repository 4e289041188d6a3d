package domain

import "time"

// Family roles
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Family is the tenant boundary: every chat room belongs to exactly one family
type Family struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Slug      string    `gorm:"column:slug;size:50;uniqueIndex" json:"slug"`
	Name      string    `gorm:"column:name;size:100" json:"name"`
	OwnerID   uint64    `gorm:"column:owner_id;index" json:"owner_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Family) TableName() string { return "families" }

// FamilyMember records a user's membership and role within a family
type FamilyMember struct {
	ID       uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FamilyID uint64    `gorm:"column:family_id;uniqueIndex:uq_family_members_pair" json:"family_id"`
	UserID   uint64    `gorm:"column:user_id;uniqueIndex:uq_family_members_pair;index" json:"user_id"`
	Role     string    `gorm:"column:role;size:16;default:member" json:"role"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (FamilyMember) TableName() string { return "family_members" }

// CanManageFamily reports whether the role may administer family resources
func (m *FamilyMember) CanManageFamily() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

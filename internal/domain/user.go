package domain

import "time"

// User represents a platform account referenced by chat and directory records
type User struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:100" json:"name"`
	Nickname  string    `gorm:"column:nickname;size:100" json:"nickname"`
	AvatarURL string    `gorm:"column:avatar_url;size:500" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the nickname when one is set
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

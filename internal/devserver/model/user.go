package model

import "time"

// User 用户主体；Followers/Following 为冗余计数器
type User struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Username       string `gorm:"type:varchar(30);uniqueIndex;not null"`
	Email          string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash   string `gorm:"type:varchar(100);not null"`
	FullName       string `gorm:"type:varchar(100)"`
	Biography      string `gorm:"type:text"`
	IsIncognito    bool
	PublicPhotoID  *string `gorm:"type:varchar(36)"`
	PrivatePhotoID *string `gorm:"type:varchar(36)"`
	FollowersCount int     `gorm:"not null;default:0"`
	FollowingCount int     `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Interests []Tag `gorm:"many2many:user_tags"`
}

func (User) TableName() string { return "users" }

// Tag 兴趣标签
type Tag struct {
	ID   string `gorm:"primaryKey;type:varchar(36)"`
	Name string `gorm:"type:varchar(60);uniqueIndex;not null"`
}

func (Tag) TableName() string { return "tags" }

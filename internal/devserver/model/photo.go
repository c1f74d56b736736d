package model

import "time"

// Photo 上传的照片（仅元数据，内容不落地）
type Photo struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_photo_user;not null"`
	Filename  string `gorm:"type:varchar(255)"`
	URL       string `gorm:"type:varchar(512)"`
	CreatedAt time.Time
}

func (Photo) TableName() string { return "photos" }

// Link 个人主页外链
type Link struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_link_user;not null"`
	Title     string `gorm:"type:varchar(60)"`
	URL       string `gorm:"type:varchar(512)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Link) TableName() string { return "links" }

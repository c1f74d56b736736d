package model

import "time"

// Thread 帖子；回复通过 parent_id 挂接
type Thread struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	AuthorID    string `gorm:"type:varchar(36);index:idx_thread_author"`
	Content     string `gorm:"type:text"`
	IsIncognito bool
	ParentID    *string `gorm:"type:varchar(36);index:idx_thread_parent"`
	LikeCount   int     `gorm:"not null;default:0"`
	ReplyCount  int     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Thread) TableName() string { return "threads" }

// ThreadLike 点赞关系
type ThreadLike struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	ThreadID  string `gorm:"type:varchar(36);index:idx_like_pair,unique;not null"`
	UserID    string `gorm:"type:varchar(36);not null;index:idx_like_pair,unique"`
	CreatedAt time.Time
}

func (ThreadLike) TableName() string { return "thread_likes" }

// Media 帖子附件（仅元数据）
type Media struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	ThreadID string `gorm:"type:varchar(36);index:idx_media_thread"`
	URL      string `gorm:"type:varchar(512)"`
}

func (Media) TableName() string { return "thread_media" }

// Outbox 发帖事件外发盒，扇出 worker 消费
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	ThreadID    string    `gorm:"type:varchar(36);uniqueIndex"`
	AuthorID    string    `gorm:"type:varchar(36);index:idx_outbox_author"`
	CreatedAt   time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(16);index"` // pending, processing, done
	ProcessedAt *time.Time
	FanoutCount int64
}

func (Outbox) TableName() string { return "outbox" }

// Inbox 时间线项（按 user_id 切分）
type Inbox struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	UserID   string `gorm:"type:varchar(36);index:idx_inbox_user;uniqueIndex:ux_inbox_user_thread"`
	ThreadID string `gorm:"type:varchar(36);index:idx_inbox_thread;uniqueIndex:ux_inbox_user_thread"`
	// 复合唯一键，避免重复 (user, thread)
	Score     int64     `gorm:"index:idx_inbox_user_score"`
	CreatedAt time.Time `gorm:"index:idx_inbox_user_score"`
}

func (Inbox) TableName() string { return "inbox" }

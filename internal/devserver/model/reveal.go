package model

import "time"

// Reveal request statuses stored server-side. NONE is a client-only
// sentinel and never appears in this column.
const (
	RequestPending  = "PENDING"
	RequestAccepted = "ACCEPTED"
	RequestRejected = "REJECTED"
)

// RevealRequest 查看请求；同一对用户可存在多条历史记录，
// 但最多一条非终态（应用层保证）
type RevealRequest struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	RequesterID string `gorm:"type:varchar(36);index:idx_req_requester;not null"`
	RequesteeID string `gorm:"type:varchar(36);index:idx_req_requestee;not null"`
	Status      string `gorm:"type:varchar(16);index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RevealRequest) TableName() string { return "reveal_requests" }

// ProfileReveal 已生效的查看授权：revealer 向 revealed_to 开放受限资料。
// 与请求生命周期无关，接受后即独立存在，撤销即删除。
type ProfileReveal struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	RevealerID   string `gorm:"type:varchar(36);index:idx_reveal_pair,unique;not null"`
	RevealedToID string `gorm:"type:varchar(36);not null;index:idx_reveal_pair,unique"`
	CreatedAt    time.Time
}

func (ProfileReveal) TableName() string { return "profile_reveals" }

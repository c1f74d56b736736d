package model

import "time"

// Media 帖子附件
type Media struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Thread 帖子；Author 为 nil 表示作者匿名且非本人
type Thread struct {
	ID                   string       `json:"id"`
	Content              string       `json:"content"`
	Media                []Media      `json:"media"`
	IsIncognito          bool         `json:"isIncognito"`
	Author               *UserSummary `json:"author"`
	LikeCount            int          `json:"likeCount"`
	IsLikedByCurrentUser bool         `json:"isLikedByCurrentUser"`
	ReplyCount           int          `json:"replyCount"`
	ParentID             string       `json:"parentId,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

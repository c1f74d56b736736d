package model

import (
	"encoding/json"
	"time"
)

// UserSummary 任何访问者都可见的用户字段
type UserSummary struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	IsProfileIncognito bool   `json:"isProfileIncognito"`
}

// GatedFields are profile fields visible only to the owner or to viewers
// holding a standing reveal grant.
type GatedFields struct {
	FullName     string `json:"fullName"`
	Biography    string `json:"biography"`
	Links        []Link `json:"links"`
	Interests    []Tag  `json:"interests"`
	PublicPhoto  *Photo `json:"publicPhoto"`
	PrivatePhoto *Photo `json:"privatePhoto"`
}

// User is the viewer-dependent profile view. Gated fields are reachable only
// through Gated(), so callers must check authorization before reading them.
type User struct {
	UserSummary
	FollowersCount          int          `json:"followersCount"`
	FollowingCount          int          `json:"followingCount"`
	IsFollowedByCurrentUser bool         `json:"isFollowedByCurrentUser"`
	RevealRequestStatus     RevealStatus `json:"revealRequestStatus"`
	CreatedAt               time.Time    `json:"createdAt"`

	gated *GatedFields
}

// Gated returns the restricted profile fields and whether the viewer is
// authorized to see them.
func (u *User) Gated() (*GatedFields, bool) {
	if u.gated == nil {
		return nil, false
	}
	return u.gated, true
}

// WithGated returns a copy of the user carrying the given gated fields.
func (u User) WithGated(g *GatedFields) User {
	u.gated = g
	return u
}

type userWire struct {
	UserSummary
	FollowersCount          int          `json:"followersCount"`
	FollowingCount          int          `json:"followingCount"`
	IsFollowedByCurrentUser bool         `json:"isFollowedByCurrentUser"`
	RevealRequestStatus     RevealStatus `json:"revealRequestStatus"`
	CreatedAt               time.Time    `json:"createdAt"`
	Gated                   *GatedFields `json:"gated,omitempty"`
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userWire{
		UserSummary:             u.UserSummary,
		FollowersCount:          u.FollowersCount,
		FollowingCount:          u.FollowingCount,
		IsFollowedByCurrentUser: u.IsFollowedByCurrentUser,
		RevealRequestStatus:     u.RevealRequestStatus,
		CreatedAt:               u.CreatedAt,
		Gated:                   u.gated,
	})
}

func (u *User) UnmarshalJSON(b []byte) error {
	var w userWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	u.UserSummary = w.UserSummary
	u.FollowersCount = w.FollowersCount
	u.FollowingCount = w.FollowingCount
	u.IsFollowedByCurrentUser = w.IsFollowedByCurrentUser
	u.RevealRequestStatus = w.RevealRequestStatus
	u.CreatedAt = w.CreatedAt
	u.gated = w.Gated
	return nil
}

// Photo 头像/照片槽位
type Photo struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Link 个人主页外链
type Link struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Tag 兴趣标签
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

package cache

import (
	"fmt"
	"strings"
)

// Cache keys are deterministic: resource type + normalized parameters.
// Profile views are keyed by username alone; if the backend ever keys
// profiles by viewer as well, the fan-out updates here stop finding them.

const (
	KindUser    = "user"
	KindThread  = "thread"
	KindRequest = "request"
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ProfileKey(username string) string { return "profile:" + norm(username) }

const ProfilePrefix = "profile:"

func UserSearchKey(query string, page, limit int) string {
	return fmt.Sprintf("users:search:%s:%d:%d", norm(query), page, limit)
}

func FollowersKey(username string, page, limit int) string {
	return fmt.Sprintf("users:followers:%s:%d:%d", norm(username), page, limit)
}

func FollowingKey(username string, page, limit int) string {
	return fmt.Sprintf("users:following:%s:%d:%d", norm(username), page, limit)
}

const UserListPrefix = "users:"

func IncomingRequestsKey(page, limit int) string {
	return fmt.Sprintf("reveals:incoming:%d:%d", page, limit)
}

func SentRequestsKey(page, limit int) string {
	return fmt.Sprintf("reveals:sent:%d:%d", page, limit)
}

func RevealedByMeKey(page, limit int) string {
	return fmt.Sprintf("reveals:granted:%d:%d", page, limit)
}

const (
	IncomingRequestsPrefix = "reveals:incoming:"
	SentRequestsPrefix     = "reveals:sent:"
	RevealedByMePrefix     = "reveals:granted:"
	PendingCountKey        = "reveals:pending-count"
)

func FeedKey(page, limit int) string { return fmt.Sprintf("threads:feed:%d:%d", page, limit) }

func UserThreadsKey(username string, page, limit int) string {
	return fmt.Sprintf("threads:user:%s:%d:%d", norm(username), page, limit)
}

func RepliesKey(threadID string, page, limit int) string {
	return fmt.Sprintf("threads:replies:%s:%d:%d", threadID, page, limit)
}

func ThreadKey(id string) string { return "thread:" + id }

const (
	ThreadListPrefix = "threads:"
	ThreadPrefix     = "thread:"
	FeedPrefix       = "threads:feed:"
)

// UserThreadsPrefix covers every cached page of one user's thread list.
func UserThreadsPrefix(username string) string { return "threads:user:" + norm(username) + ":" }

// RepliesPrefix covers every cached replies page under one parent thread.
func RepliesPrefix(threadID string) string { return "threads:replies:" + threadID + ":" }

const (
	OwnPhotosKey = "photos:own"
	OwnLinksKey  = "links:own"
	TagsKey      = "tags:all"
)

// UserRef references a user copy by username (profile cache key shape).
func UserRef(username string) Ref { return Ref{Kind: KindUser, ID: norm(username)} }

// ThreadRef references a thread copy by id.
func ThreadRef(id string) Ref { return Ref{Kind: KindThread, ID: id} }

// RequestRef references a reveal request copy by id.
func RequestRef(id string) Ref { return Ref{Kind: KindRequest, ID: id} }

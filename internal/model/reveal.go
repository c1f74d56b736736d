package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RevealStatus 查看权限状态；Absent 是客户端侧哨兵（线上值 NONE），
// 表示“请求不存在”，不是服务端存储的状态。
type RevealStatus int

const (
	RevealAbsent RevealStatus = iota
	RevealPending
	RevealAccepted
	RevealRejected
)

// Exists reports whether a request row exists server-side.
func (s RevealStatus) Exists() bool { return s != RevealAbsent }

// Terminal reports whether the request has been decided.
func (s RevealStatus) Terminal() bool { return s == RevealAccepted || s == RevealRejected }

func (s RevealStatus) String() string {
	switch s {
	case RevealPending:
		return "PENDING"
	case RevealAccepted:
		return "ACCEPTED"
	case RevealRejected:
		return "REJECTED"
	default:
		return "NONE"
	}
}

func (s RevealStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *RevealStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw {
	case "NONE", "":
		*s = RevealAbsent
	case "PENDING":
		*s = RevealPending
	case "ACCEPTED":
		*s = RevealAccepted
	case "REJECTED":
		*s = RevealRejected
	default:
		return fmt.Errorf("unknown reveal status %q", raw)
	}
	return nil
}

// Decision is the subset of statuses a responder may persist. Keeping it a
// separate type stops the Absent sentinel from ever reaching the server.
type Decision string

const (
	DecisionAccepted Decision = "ACCEPTED"
	DecisionRejected Decision = "REJECTED"
)

// Status converts the decision to the matching RevealStatus.
func (d Decision) Status() RevealStatus {
	if d == DecisionAccepted {
		return RevealAccepted
	}
	return RevealRejected
}

// RevealRequest 一次查看请求：requester 请求查看 requestee 的受限资料
type RevealRequest struct {
	ID        string       `json:"id"`
	Status    RevealStatus `json:"status"`
	Requester UserSummary  `json:"requester"`
	Requestee UserSummary  `json:"requestee"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ProfileReveal is the standing grant materialized once a request is
// accepted, independent of the originating request's lifecycle.
type ProfileReveal struct {
	ID         string      `json:"id"`
	Revealer   UserSummary `json:"revealer"`
	RevealedTo UserSummary `json:"revealedTo"`
	CreatedAt  time.Time   `json:"createdAt"`
}

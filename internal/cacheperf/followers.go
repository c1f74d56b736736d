// Package cacheperf compares redis caching strategies for follower-list
// reads against the devserver store. Used by cmd/cachebench.
package cacheperf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

// FollowerSnapshot contains the minimal user info follower pages render.
type FollowerSnapshot struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsIncognito bool   `json:"isProfileIncognito"`
}

// Strategy is one way of answering a follower page read.
type Strategy interface {
	Name() string
	Page(ctx context.Context, ownerID string, page, size int) ([]FollowerSnapshot, error)
}

// FollowerService bundles one shared data source with the three read
// strategies under comparison.
type FollowerService struct {
	src *followerSource

	// Direct 每次直读主库；PageCache 整页缓存；SharedIndex id 索引加用户快照
	Direct      Strategy
	PageCache   Strategy
	SharedIndex Strategy
}

// NewFollowerService builds the comparison set over the given DB and redis
// client. dbDelay simulates the round-trip cost of the primary store.
func NewFollowerService(db *gorm.DB, cache *redis.Client, ttl, dbDelay time.Duration) *FollowerService {
	src := &followerSource{db: db, rdb: cache, ttl: ttl, dbDelay: dbDelay}
	return &FollowerService{
		src:         src,
		Direct:      directReads{src},
		PageCache:   pageCache{src},
		SharedIndex: sharedIndex{src},
	}
}

// Strategies returns the comparison set in report order.
func (s *FollowerService) Strategies() []Strategy {
	return []Strategy{s.Direct, s.PageCache, s.SharedIndex}
}

// Counters reports how many primary-store loads were executed.
func (s *FollowerService) Counters() FollowerDBCounters {
	return FollowerDBCounters{
		PageQueries:  s.src.pageQueries.Load(),
		IndexLoads:   s.src.indexLoads.Load(),
		UserBulkLoad: s.src.userBulkLoad.Load(),
	}
}

// ResetCounters clears the recorded primary-store call counters.
func (s *FollowerService) ResetCounters() {
	s.src.pageQueries.Store(0)
	s.src.indexLoads.Store(0)
	s.src.userBulkLoad.Store(0)
}

// FollowerDBCounters summarises DB hits during a run.
type FollowerDBCounters struct {
	PageQueries  int64
	IndexLoads   int64
	UserBulkLoad int64
}

func clampPaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}

func pageKey(ownerID string, page, size int) string {
	return fmt.Sprintf("followers:%s:%d:%d", ownerID, page, size)
}

func indexKey(ownerID string) string { return "followers:index:" + ownerID }

func snapshotKey(userID string) string { return "user:" + userID }

type directReads struct{ src *followerSource }

func (directReads) Name() string { return "no-cache" }

func (d directReads) Page(ctx context.Context, ownerID string, page, size int) ([]FollowerSnapshot, error) {
	page, size = clampPaging(page, size)
	return d.src.pageFromDB(ctx, ownerID, page, size)
}

// pageCache 整页序列化后按 (owner, page, size) 存，条目之间互不共享。
type pageCache struct{ src *followerSource }

func (pageCache) Name() string { return "page-cache" }

func (p pageCache) Page(ctx context.Context, ownerID string, page, size int) ([]FollowerSnapshot, error) {
	page, size = clampPaging(page, size)
	key := pageKey(ownerID, page, size)
	if raw, err := p.src.rdb.Get(ctx, key).Bytes(); err == nil {
		var rows []FollowerSnapshot
		if json.Unmarshal(raw, &rows) == nil {
			return rows, nil
		}
	}

	rows, err := p.src.pageFromDB(ctx, ownerID, page, size)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(rows); err == nil {
		_ = p.src.rdb.Set(ctx, key, raw, p.src.ttl).Err()
	}
	return rows, nil
}

// sharedIndex keeps one redis list of follower ids per owner plus per-user
// snapshot entries, so every page reads from the same cached data.
type sharedIndex struct{ src *followerSource }

func (sharedIndex) Name() string { return "shared-index" }

func (s sharedIndex) Page(ctx context.Context, ownerID string, page, size int) ([]FollowerSnapshot, error) {
	page, size = clampPaging(page, size)
	lo := (page - 1) * size

	var ids []string
	if n, _ := s.src.rdb.Exists(ctx, indexKey(ownerID)).Result(); n > 0 {
		ids, _ = s.src.rdb.LRange(ctx, indexKey(ownerID), int64(lo), int64(lo+size-1)).Result()
		// 索引在但区间为空，说明翻过了尾页
		if len(ids) == 0 {
			return []FollowerSnapshot{}, nil
		}
	}
	if len(ids) == 0 {
		all, err := s.src.followerIDs(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if lo >= len(all) {
			return []FollowerSnapshot{}, nil
		}
		ids = all[lo:min(lo+size, len(all))]
	}
	return s.src.snapshots(ctx, ids)
}

// followerSource is the storage behind every strategy: the gorm primary plus
// a redis side cache, counting each primary round trip.
type followerSource struct {
	db      *gorm.DB
	rdb     *redis.Client
	ttl     time.Duration
	dbDelay time.Duration

	pageQueries  atomic.Int64
	indexLoads   atomic.Int64
	userBulkLoad atomic.Int64
}

func (f *followerSource) pageFromDB(ctx context.Context, ownerID string, page, size int) ([]FollowerSnapshot, error) {
	time.Sleep(f.dbDelay)
	f.pageQueries.Add(1)

	var rows []FollowerSnapshot
	err := f.db.WithContext(ctx).
		Table("fans").
		Select("users.id", "users.username", "users.is_incognito").
		Joins("JOIN users ON fans.fan_id = users.id").
		Where("fans.user_id = ?", ownerID).
		Order("fans.created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Scan(&rows).Error
	return rows, err
}

// followerIDs reloads the full follower id index from the primary store and
// rebuilds the redis list behind it.
func (f *followerSource) followerIDs(ctx context.Context, ownerID string) ([]string, error) {
	time.Sleep(f.dbDelay)
	f.indexLoads.Add(1)

	var ids []string
	err := f.db.WithContext(ctx).
		Table("fans").
		Select("fan_id").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Scan(&ids).Error
	if err != nil || len(ids) == 0 {
		return ids, err
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe := f.rdb.Pipeline()
	pipe.Del(ctx, indexKey(ownerID))
	pipe.RPush(ctx, indexKey(ownerID), members...)
	pipe.Expire(ctx, indexKey(ownerID), f.ttl)
	_, _ = pipe.Exec(ctx)
	return ids, nil
}

// snapshots resolves ids to user snapshots, reading redis first and bulk
// loading whatever is missing in one query. Output order follows ids.
func (f *followerSource) snapshots(ctx context.Context, ids []string) ([]FollowerSnapshot, error) {
	if len(ids) == 0 {
		return []FollowerSnapshot{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = snapshotKey(id)
	}

	found := make(map[string]FollowerSnapshot, len(ids))
	if vals, err := f.rdb.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var snap FollowerSnapshot
			if json.Unmarshal([]byte(raw), &snap) == nil {
				found[ids[i]] = snap
			}
		}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		time.Sleep(f.dbDelay)
		f.userBulkLoad.Add(1)

		var users []model.User
		if err := f.db.WithContext(ctx).Where("id IN ?", missing).Find(&users).Error; err != nil {
			return nil, err
		}
		pipe := f.rdb.Pipeline()
		for _, u := range users {
			snap := FollowerSnapshot{ID: u.ID, Username: u.Username, IsIncognito: u.IsIncognito}
			found[u.ID] = snap
			if raw, err := json.Marshal(snap); err == nil {
				pipe.Set(ctx, snapshotKey(u.ID), raw, f.ttl)
			}
		}
		_, _ = pipe.Exec(ctx)
	}

	out := make([]FollowerSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := found[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

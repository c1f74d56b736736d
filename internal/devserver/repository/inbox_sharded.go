package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

const (
	// InboxShardCount 分片数量 (8个数据库 x 8张表 = 64个分片)
	InboxShardCount = 8
	InboxTableCount = 8
)

// ShardedInboxRepository 分库分表时间线仓储实现。
// 按 user_id 哈希路由，单个用户的时间线永远落在同一张表，
// Feed 读取只碰一个分片。
type ShardedInboxRepository struct {
	// shards[dbIndex][tableIndex] = *gorm.DB
	shards [][]*gorm.DB
}

func NewShardedInboxRepository(dbs []*gorm.DB) (InboxRepository, error) {
	if len(dbs) != InboxShardCount {
		return nil, fmt.Errorf("expected %d databases, got %d", InboxShardCount, len(dbs))
	}

	shards := make([][]*gorm.DB, InboxShardCount)
	for i := 0; i < InboxShardCount; i++ {
		shards[i] = make([]*gorm.DB, InboxTableCount)
		for j := 0; j < InboxTableCount; j++ {
			shards[i][j] = dbs[i]
		}
	}

	return &ShardedInboxRepository{shards: shards}, nil
}

// RouteByUser 根据用户ID路由到对应分片
// 规则: 低位确定库，高位确定表
func RouteByUser(userID string) (dbIndex, tableIndex int) {
	h := fnv.New32a()
	h.Write([]byte(userID))
	sum := h.Sum32()
	dbIndex = int(sum % InboxShardCount)
	tableIndex = int((sum / InboxShardCount) % InboxTableCount)
	return
}

func inboxTableName(tableIndex int) string {
	return fmt.Sprintf("inbox_%d", tableIndex)
}

func (r *ShardedInboxRepository) Append(ctx context.Context, entry *model.Inbox) error {
	dbIdx, tblIdx := RouteByUser(entry.UserID)

	return r.shards[dbIdx][tblIdx].WithContext(ctx).
		Table(inboxTableName(tblIdx)).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *ShardedInboxRepository) Feed(ctx context.Context, userID string, limit int) ([]*model.Inbox, error) {
	dbIdx, tblIdx := RouteByUser(userID)

	var entries []*model.Inbox
	err := r.shards[dbIdx][tblIdx].WithContext(ctx).
		Table(inboxTableName(tblIdx)).
		Where("user_id = ?", userID).
		Order("score DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PurgeThread 被删帖子的副本散落在所有分片，需要并发全表扫删
func (r *ShardedInboxRepository) PurgeThread(ctx context.Context, threadID string) error {
	var wg sync.WaitGroup
	errChan := make(chan error, InboxShardCount*InboxTableCount)

	for dbIdx := 0; dbIdx < InboxShardCount; dbIdx++ {
		for tblIdx := 0; tblIdx < InboxTableCount; tblIdx++ {
			wg.Add(1)
			go func(di, ti int) {
				defer wg.Done()

				err := r.shards[di][ti].WithContext(ctx).
					Table(inboxTableName(ti)).
					Where("thread_id = ?", threadID).
					Delete(&model.Inbox{}).Error
				if err != nil {
					errChan <- err
				}
			}(dbIdx, tblIdx)
		}
	}

	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return <-errChan
	}
	return nil
}

// Count 统计时间线条目总数 (需要查询所有分片)
func (r *ShardedInboxRepository) Count(ctx context.Context) (int64, error) {
	var totalCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	errChan := make(chan error, InboxShardCount*InboxTableCount)

	for dbIdx := 0; dbIdx < InboxShardCount; dbIdx++ {
		for tblIdx := 0; tblIdx < InboxTableCount; tblIdx++ {
			wg.Add(1)
			go func(di, ti int) {
				defer wg.Done()

				var count int64
				err := r.shards[di][ti].WithContext(ctx).
					Table(inboxTableName(ti)).
					Count(&count).Error
				if err != nil {
					errChan <- err
					return
				}

				mu.Lock()
				totalCount += count
				mu.Unlock()
			}(dbIdx, tblIdx)
		}
	}

	wg.Wait()
	close(errChan)

	if len(errChan) > 0 {
		return 0, <-errChan
	}

	return totalCount, nil
}

func (r *ShardedInboxRepository) InitSchema() error {
	for dbIdx := 0; dbIdx < InboxShardCount; dbIdx++ {
		db := r.shards[dbIdx][0]

		for tblIdx := 0; tblIdx < InboxTableCount; tblIdx++ {
			name := inboxTableName(tblIdx)
			if err := db.Table(name).AutoMigrate(&model.Inbox{}); err != nil {
				return fmt.Errorf("failed to migrate table %s in db %d: %w", name, dbIdx, err)
			}
		}
	}
	return nil
}

func (r *ShardedInboxRepository) Close() error {
	// 同一个数据库被引用多次，用 map 去重
	dbMap := make(map[*gorm.DB]bool)
	for i := 0; i < InboxShardCount; i++ {
		dbMap[r.shards[i][0]] = true
	}

	for db := range dbMap {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
	}
	return nil
}

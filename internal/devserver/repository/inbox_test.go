package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

func openMemDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// 内存库绑死单连接，并发查询才不会各开一个空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestRouteByUserIsStableAndInBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		userID := fmt.Sprintf("user-%d", i)
		db1, tb1 := RouteByUser(userID)
		db2, tb2 := RouteByUser(userID)
		require.Equal(t, db1, db2)
		require.Equal(t, tb1, tb2)
		require.GreaterOrEqual(t, db1, 0)
		require.Less(t, db1, InboxShardCount)
		require.GreaterOrEqual(t, tb1, 0)
		require.Less(t, tb1, InboxTableCount)
	}
}

func TestSingleDBInboxRoundTrip(t *testing.T) {
	repo := NewSingleDBInboxRepository(openMemDB(t))
	require.NoError(t, repo.InitSchema())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Append(ctx, &model.Inbox{
			ID: fmt.Sprintf("e-%d", i), UserID: "reader",
			ThreadID: fmt.Sprintf("t-%d", i), Score: int64(i),
		}))
	}
	// 重复投递同一 (user, thread) 幂等
	require.NoError(t, repo.Append(ctx, &model.Inbox{
		ID: "dup", UserID: "reader", ThreadID: "t-1", Score: 99,
	}))

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, total)

	feed, err := repo.Feed(ctx, "reader", 10)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	require.Equal(t, "t-2", feed[0].ThreadID)
	require.Equal(t, "t-0", feed[2].ThreadID)

	require.NoError(t, repo.PurgeThread(ctx, "t-2"))
	total, err = repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}

func TestShardedInboxScatterGather(t *testing.T) {
	dbs := make([]*gorm.DB, InboxShardCount)
	for i := range dbs {
		dbs[i] = openMemDB(t)
	}
	repo, err := NewShardedInboxRepository(dbs)
	require.NoError(t, err)
	require.NoError(t, repo.InitSchema())
	ctx := context.Background()

	// 打散到不同分片的用户，每人两条
	const users = 40
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("user-%d", i)
		for j := 0; j < 2; j++ {
			require.NoError(t, repo.Append(ctx, &model.Inbox{
				ID:       fmt.Sprintf("e-%d-%d", i, j),
				UserID:   userID,
				ThreadID: fmt.Sprintf("t-%d", j),
				Score:    int64(j),
			}))
		}
	}

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, users*2, total)

	// 单用户 feed 只需查一个分片，顺序按 score 倒排
	feed, err := repo.Feed(ctx, "user-7", 10)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	require.Equal(t, "t-1", feed[0].ThreadID)

	// 删帖要扫全部分片
	require.NoError(t, repo.PurgeThread(ctx, "t-0"))
	total, err = repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, users, total)

	feed, err = repo.Feed(ctx, "user-7", 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
}

func TestShardedInboxRequiresExactShardCount(t *testing.T) {
	_, err := NewShardedInboxRepository([]*gorm.DB{openMemDB(t)})
	require.Error(t, err)
}

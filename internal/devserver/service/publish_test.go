package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

func setupThreadDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Thread{}, &model.ThreadLike{}, &model.Media{},
		&model.Outbox{}, &model.Inbox{}, &model.Fan{},
	))
	return db
}

func TestPublishWritesOutboxEvent(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	ctx := context.Background()

	th, err := svc.Publish(ctx, "author", "first post", false, "", []string{"http://img/1.jpg"})
	require.NoError(t, err)

	var out model.Outbox
	require.NoError(t, db.Where("thread_id = ?", th.ID).First(&out).Error)
	require.Equal(t, "pending", out.Status)

	media, err := svc.MediaFor(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, media, 1)
}

func TestReplyDoesNotFanOut(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	ctx := context.Background()

	parent, err := svc.Publish(ctx, "author", "root", false, "", nil)
	require.NoError(t, err)
	reply, err := svc.Publish(ctx, "other", "re: root", false, parent.ID, nil)
	require.NoError(t, err)

	var cnt int64
	require.NoError(t, db.Model(&model.Outbox{}).Where("thread_id = ?", reply.ID).Count(&cnt).Error)
	require.Zero(t, cnt)

	got, err := svc.Get(ctx, parent.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.ReplyCount)

	// 回复不存在的父帖直接报错
	_, err = svc.Publish(ctx, "other", "orphan", false, "missing", nil)
	require.ErrorIs(t, err, ErrThreadNotFound)
}

func TestFanoutDeliversToFansAndAuthor(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	fanRepo := repository.NewFanRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, fanRepo.Create(ctx, "author", fmt.Sprintf("fan-%d", i)))
	}

	th, err := svc.Publish(ctx, "author", "hello fans", false, "", nil)
	require.NoError(t, err)

	worker := NewFanoutWorker(db, fanRepo, 1, 2, 10, time.Second)
	require.NoError(t, worker.ProcessOnce(ctx))

	var delivered int64
	require.NoError(t, db.Model(&model.Inbox{}).Where("thread_id = ?", th.ID).Count(&delivered).Error)
	require.EqualValues(t, 6, delivered)

	rows, total, err := svc.Feed(ctx, "fan-3", 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, th.ID, rows[0].ID)

	// 再跑一轮不会重复投递
	require.NoError(t, worker.ProcessOnce(ctx))
	require.NoError(t, db.Model(&model.Inbox{}).Where("thread_id = ?", th.ID).Count(&delivered).Error)
	require.EqualValues(t, 6, delivered)
}

func TestFeedOrdersNewestFirst(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	fanRepo := repository.NewFanRepository(db)
	ctx := context.Background()
	require.NoError(t, fanRepo.Create(ctx, "author", "reader"))

	worker := NewFanoutWorker(db, fanRepo, 1, 100, 10, time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		th, err := svc.Publish(ctx, "author", fmt.Sprintf("post %d", i), false, "", nil)
		require.NoError(t, err)
		ids = append(ids, th.ID)
		require.NoError(t, worker.ProcessOnce(ctx))
		time.Sleep(2 * time.Millisecond) // score 按投递时间取纳秒
	}

	rows, _, err := svc.Feed(ctx, "reader", 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, ids[2], rows[0].ID)
	require.Equal(t, ids[0], rows[2].ID)
}

func TestLikeUnlikeCounters(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	ctx := context.Background()

	th, err := svc.Publish(ctx, "author", "likeable", false, "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Like(ctx, "u1", th.ID))
	require.NoError(t, svc.Like(ctx, "u1", th.ID)) // 幂等
	require.NoError(t, svc.Like(ctx, "u2", th.ID))

	got, err := svc.Get(ctx, th.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.LikeCount)

	liked, err := svc.IsLiked(ctx, "u1", th.ID)
	require.NoError(t, err)
	require.True(t, liked)

	require.NoError(t, svc.Unlike(ctx, "u1", th.ID))
	require.NoError(t, svc.Unlike(ctx, "u1", th.ID))
	got, err = svc.Get(ctx, th.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikeCount)
}

func TestDeleteThreadGuardsAuthorAndCleansUp(t *testing.T) {
	db := setupThreadDB(t)
	svc := NewThreadService(db)
	fanRepo := repository.NewFanRepository(db)
	ctx := context.Background()
	require.NoError(t, fanRepo.Create(ctx, "author", "reader"))

	th, err := svc.Publish(ctx, "author", "short-lived", false, "", nil)
	require.NoError(t, err)
	worker := NewFanoutWorker(db, fanRepo, 1, 100, 10, time.Second)
	require.NoError(t, worker.ProcessOnce(ctx))
	require.NoError(t, svc.Like(ctx, "reader", th.ID))

	require.ErrorIs(t, svc.Delete(ctx, "reader", th.ID), ErrThreadForbidden)
	require.NoError(t, svc.Delete(ctx, "author", th.ID))

	_, err = svc.Get(ctx, th.ID)
	require.ErrorIs(t, err, ErrThreadNotFound)
	for _, m := range []any{&model.Inbox{}, &model.ThreadLike{}, &model.Outbox{}} {
		var cnt int64
		require.NoError(t, db.Model(m).Where("thread_id = ?", th.ID).Count(&cnt).Error)
		require.Zero(t, cnt, "%T rows must be gone", m)
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

// FanoutWorker 从 outbox 拉取发帖事件并写入粉丝 inbox
type FanoutWorker struct {
	db           *gorm.DB
	fanRepo      repository.FanRepository
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	workers      int
}

func NewFanoutWorker(db *gorm.DB, fanRepo repository.FanRepository, workers, batchSize, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 2
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &FanoutWorker{db: db, fanRepo: fanRepo, workers: workers, batchSize: batchSize, claimLimit: claimLimit, pollInterval: pollInterval}
}

// Start 启动若干 worker 轮询处理 outbox；返回停止函数
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	for i := 0; i < w.workers; i++ {
		go w.loop(stop)
	}
	return func(ctx context.Context) error { close(stop); return nil }
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = w.ProcessOnce(context.Background())
		}
	}
}

// ProcessOnce claims a batch of pending outbox rows and fans them out.
// Single-process claim: status flip inside a transaction is enough here,
// sqlite has no SKIP LOCKED.
func (w *FanoutWorker) ProcessOnce(ctx context.Context) error {
	type ob struct {
		ID        string
		ThreadID  string
		AuthorID  string
		CreatedAt time.Time
	}
	var batch []ob
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Outbox{}).
			Select("id", "thread_id", "author_id", "created_at").
			Where("status = ?", "pending").
			Order("created_at").
			Limit(w.claimLimit).
			Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", "processing").Error
	})
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	for _, b := range batch {
		totalWritten := int64(0)
		now := time.Now()
		score := now.UnixNano()

		// 作者自己的时间线也要有这条
		self := model.Inbox{ID: uuid.New().String(), UserID: b.AuthorID, ThreadID: b.ThreadID, Score: score, CreatedAt: now}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&self).Error; err == nil {
			totalWritten++
		}

		// fetch fans in pages
		offset := 0
		page := w.batchSize
		for {
			fans, err := w.fanRepo.ListFans(ctx, b.AuthorID, offset, page)
			if err != nil {
				break
			}
			if len(fans) == 0 {
				break
			}
			records := make([]model.Inbox, 0, len(fans))
			for _, f := range fans {
				records = append(records, model.Inbox{ID: uuid.New().String(), UserID: f.FanID, ThreadID: b.ThreadID, Score: score, CreatedAt: now})
			}
			// upsert ignore duplicates
			_ = w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
			totalWritten += int64(len(records))
			if len(fans) < page {
				break
			}
			offset += page
		}
		done := time.Now()
		_ = w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{"status": "done", "processed_at": done, "fanout_count": totalWritten}).Error
	}
	return nil
}

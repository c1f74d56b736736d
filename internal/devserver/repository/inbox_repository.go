package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

// InboxRepository abstracts timeline storage. The inbox is the largest table
// in a fan-out feed system, so it has a single-database and a sharded
// implementation for comparison.
type InboxRepository interface {
	Append(ctx context.Context, entry *model.Inbox) error
	// Feed returns the newest entries for one user, score descending.
	Feed(ctx context.Context, userID string, limit int) ([]*model.Inbox, error)
	// PurgeThread removes every copy of a deleted thread.
	PurgeThread(ctx context.Context, threadID string) error
	Count(ctx context.Context) (int64, error)
	InitSchema() error
	Close() error
}

// SingleDBInboxRepository 单库时间线仓储实现
type SingleDBInboxRepository struct {
	db *gorm.DB
}

func NewSingleDBInboxRepository(db *gorm.DB) InboxRepository {
	return &SingleDBInboxRepository{db: db}
}

func (r *SingleDBInboxRepository) Append(ctx context.Context, entry *model.Inbox) error {
	// 幂等：重复投递同一 (user, thread) 不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (r *SingleDBInboxRepository) Feed(ctx context.Context, userID string, limit int) ([]*model.Inbox, error) {
	var entries []*model.Inbox
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("score DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *SingleDBInboxRepository) PurgeThread(ctx context.Context, threadID string) error {
	return r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&model.Inbox{}).Error
}

func (r *SingleDBInboxRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Inbox{}).Count(&count).Error
	return count, err
}

func (r *SingleDBInboxRepository) InitSchema() error {
	return r.db.AutoMigrate(&model.Inbox{})
}

func (r *SingleDBInboxRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

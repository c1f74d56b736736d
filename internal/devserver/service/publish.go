package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrThreadForbidden = errors.New("not the author of this thread")
)

// ThreadService 帖子生命周期：发帖走 outbox，点赞维护计数器
type ThreadService interface {
	Publish(ctx context.Context, authorID, content string, incognito bool, parentID string, mediaURLs []string) (*model.Thread, error)
	Get(ctx context.Context, id string) (*model.Thread, error)
	Update(ctx context.Context, authorID, id, content string) (*model.Thread, error)
	Delete(ctx context.Context, authorID, id string) error
	Like(ctx context.Context, userID, threadID string) error
	Unlike(ctx context.Context, userID, threadID string) error
	IsLiked(ctx context.Context, userID, threadID string) (bool, error)
	Feed(ctx context.Context, userID string, page, pageSize int) ([]*model.Thread, int64, error)
	Replies(ctx context.Context, threadID string, page, pageSize int) ([]*model.Thread, int64, error)
	ByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]*model.Thread, int64, error)
	MediaFor(ctx context.Context, threadID string) ([]model.Media, error)
}

type threadService struct{ db *gorm.DB }

func NewThreadService(db *gorm.DB) ThreadService { return &threadService{db: db} }

// Publish 在一个事务内落地 Thread 与 Outbox 事件；回复同时顶高父帖计数
func (s *threadService) Publish(ctx context.Context, authorID, content string, incognito bool, parentID string, mediaURLs []string) (*model.Thread, error) {
	threadID := uuid.New().String()
	now := time.Now()
	var parent *string
	if parentID != "" {
		parent = &parentID
	}
	th := &model.Thread{
		ID: threadID, AuthorID: authorID, Content: content,
		IsIncognito: incognito, ParentID: parent,
		CreatedAt: now, UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parent != nil {
			res := tx.Model(&model.Thread{}).Where("id = ?", *parent).
				UpdateColumn("reply_count", gorm.Expr("reply_count + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrThreadNotFound
			}
		}
		if err := tx.Create(th).Error; err != nil {
			return err
		}
		for _, u := range mediaURLs {
			m := &model.Media{ID: uuid.New().String(), ThreadID: threadID, URL: u}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		// 回复不进入粉丝时间线，只有顶层帖子扇出
		if parent == nil {
			out := &model.Outbox{ID: uuid.New().String(), ThreadID: threadID, AuthorID: authorID, CreatedAt: now, Status: "pending"}
			if err := tx.Create(out).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return th, nil
}

func (s *threadService) Get(ctx context.Context, id string) (*model.Thread, error) {
	var th model.Thread
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&th).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &th, nil
}

func (s *threadService) Update(ctx context.Context, authorID, id, content string) (*model.Thread, error) {
	th, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if th.AuthorID != authorID {
		return nil, ErrThreadForbidden
	}
	th.Content = content
	th.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Model(&model.Thread{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": th.UpdatedAt}).Error; err != nil {
		return nil, err
	}
	return th, nil
}

func (s *threadService) Delete(ctx context.Context, authorID, id string) error {
	th, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if th.AuthorID != authorID {
		return ErrThreadForbidden
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if th.ParentID != nil {
			if err := tx.Model(&model.Thread{}).Where("id = ?", *th.ParentID).
				UpdateColumn("reply_count", gorm.Expr("CASE WHEN reply_count > 0 THEN reply_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
		}
		for _, m := range []any{&model.Inbox{}, &model.Outbox{}, &model.ThreadLike{}} {
			if err := tx.Where("thread_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("thread_id = ?", id).Delete(&model.Media{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Thread{}).Error
	})
}

func (s *threadService) Like(ctx context.Context, userID, threadID string) error {
	if _, err := s.Get(ctx, threadID); err != nil {
		return err
	}
	like := &model.ThreadLike{ID: uuid.New().String(), ThreadID: threadID, UserID: userID}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like)
	if res.Error != nil {
		return res.Error
	}
	// 重复点赞不重复计数
	if res.RowsAffected > 0 {
		return s.db.WithContext(ctx).Model(&model.Thread{}).Where("id = ?", threadID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	}
	return nil
}

func (s *threadService) Unlike(ctx context.Context, userID, threadID string) error {
	res := s.db.WithContext(ctx).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Delete(&model.ThreadLike{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return s.db.WithContext(ctx).Model(&model.Thread{}).Where("id = ?", threadID).
			UpdateColumn("like_count", gorm.Expr("CASE WHEN like_count > 0 THEN like_count - 1 ELSE 0 END")).Error
	}
	return nil
}

func (s *threadService) IsLiked(ctx context.Context, userID, threadID string) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&model.ThreadLike{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&cnt).Error
	return cnt > 0, err
}

// Feed reads the viewer's inbox, newest first.
func (s *threadService) Feed(ctx context.Context, userID string, page, pageSize int) ([]*model.Thread, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Inbox{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*model.Thread
	err := s.db.WithContext(ctx).
		Table("threads").
		Joins("JOIN inbox ON inbox.thread_id = threads.id").
		Where("inbox.user_id = ?", userID).
		Order("inbox.score DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (s *threadService) Replies(ctx context.Context, threadID string, page, pageSize int) ([]*model.Thread, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("parent_id = ?", threadID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*model.Thread
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", threadID).
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (s *threadService) ByAuthor(ctx context.Context, authorID string, page, pageSize int) ([]*model.Thread, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Thread{}).
		Where("author_id = ? AND parent_id IS NULL", authorID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*model.Thread
	err := s.db.WithContext(ctx).
		Where("author_id = ? AND parent_id IS NULL", authorID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	return rows, total, err
}

func (s *threadService) MediaFor(ctx context.Context, threadID string) ([]model.Media, error) {
	var rows []model.Media
	err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Find(&rows).Error
	return rows, err
}

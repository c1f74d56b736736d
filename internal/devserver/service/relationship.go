package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
)

// RelationshipService 关系链服务：写 follows，冗余 fans，维护计数器
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error)
	ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error)
}

type relationshipService struct {
	db         *gorm.DB
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	replicator *FanReplicator
}

func NewRelationshipService(db *gorm.DB, followRepo repository.FollowRepository, fanRepo repository.FanRepository, replicator *FanReplicator) RelationshipService {
	return &relationshipService{db: db, followRepo: followRepo, fanRepo: fanRepo, replicator: replicator}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	created, err := s.followRepo.Create(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	// 计数器只在真正插入时移动，重复关注不会重复计数
	if created {
		if err := s.bumpCounters(ctx, fromUserID, toUserID, +1); err != nil {
			return err
		}
		if s.replicator != nil {
			s.replicator.EnqueueAdd(toUserID, fromUserID)
		}
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	deleted, err := s.followRepo.Delete(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	if deleted {
		if err := s.bumpCounters(ctx, fromUserID, toUserID, -1); err != nil {
			return err
		}
		if s.replicator != nil {
			s.replicator.EnqueueRemove(toUserID, fromUserID)
		}
	}
	return nil
}

// bumpCounters moves the denormalized counters, flooring at zero.
func (s *relationshipService) bumpCounters(ctx context.Context, fromUserID, toUserID string, delta int) error {
	var followersExpr, followingExpr string
	if delta > 0 {
		followersExpr = "followers_count + 1"
		followingExpr = "following_count + 1"
	} else {
		followersExpr = "CASE WHEN followers_count > 0 THEN followers_count - 1 ELSE 0 END"
		followingExpr = "CASE WHEN following_count > 0 THEN following_count - 1 ELSE 0 END"
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", toUserID).
		UpdateColumn("followers_count", gorm.Expr(followersExpr)).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", fromUserID).
		UpdateColumn("following_count", gorm.Expr(followingExpr)).Error
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	items, err := s.followRepo.ListFollowing(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, total, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	items, err := s.fanRepo.ListFans(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.fanRepo.CountFans(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, total, nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

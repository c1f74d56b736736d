package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

type RevealRepository interface {
	CreateRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error)
	GetRequest(ctx context.Context, id string) (*model.RevealRequest, error)
	// ActiveRequest finds the non-terminal request between the pair, nil
	// when none exists.
	ActiveRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error)
	// LatestRequest finds the most recent request between the pair in any
	// state, nil when none ever existed.
	LatestRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error)
	UpdateRequestStatus(ctx context.Context, id, status string) error
	DeleteRequest(ctx context.Context, id string) error
	ListIncoming(ctx context.Context, requesteeID string, offset, limit int) ([]*model.RevealRequest, int64, error)
	ListSent(ctx context.Context, requesterID string, offset, limit int) ([]*model.RevealRequest, int64, error)
	CountPending(ctx context.Context, requesteeID string) (int64, error)

	CreateGrant(ctx context.Context, revealerID, revealedToID string) error
	GrantExists(ctx context.Context, revealerID, revealedToID string) (bool, error)
	DeleteGrant(ctx context.Context, revealerID, revealedToID string) (bool, error)
	ListGrantsByRevealer(ctx context.Context, revealerID string, offset, limit int) ([]*model.ProfileReveal, int64, error)
}

type revealRepository struct{ db *gorm.DB }

func NewRevealRepository(db *gorm.DB) RevealRepository { return &revealRepository{db: db} }

func (r *revealRepository) CreateRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error) {
	req := &model.RevealRequest{
		ID:          uuid.New().String(),
		RequesterID: requesterID,
		RequesteeID: requesteeID,
		Status:      model.RequestPending,
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *revealRepository) GetRequest(ctx context.Context, id string) (*model.RevealRequest, error) {
	var req model.RevealRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *revealRepository) ActiveRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error) {
	var req model.RevealRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND requestee_id = ? AND status = ?", requesterID, requesteeID, model.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *revealRepository) LatestRequest(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error) {
	var req model.RevealRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND requestee_id = ?", requesterID, requesteeID).
		Order("created_at DESC").
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *revealRepository) UpdateRequestStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.RevealRequest{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *revealRepository) DeleteRequest(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.RevealRequest{}).Error
}

func (r *revealRepository) ListIncoming(ctx context.Context, requesteeID string, offset, limit int) ([]*model.RevealRequest, int64, error) {
	return r.listRequests(ctx, "requestee_id = ?", requesteeID, offset, limit)
}

func (r *revealRepository) ListSent(ctx context.Context, requesterID string, offset, limit int) ([]*model.RevealRequest, int64, error) {
	return r.listRequests(ctx, "requester_id = ?", requesterID, offset, limit)
}

func (r *revealRepository) listRequests(ctx context.Context, cond, id string, offset, limit int) ([]*model.RevealRequest, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&model.RevealRequest{}).Where(cond, id)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*model.RevealRequest
	err := r.db.WithContext(ctx).
		Where(cond, id).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *revealRepository) CountPending(ctx context.Context, requesteeID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.RevealRequest{}).
		Where("requestee_id = ? AND status = ?", requesteeID, model.RequestPending).
		Count(&cnt).Error
	return cnt, err
}

func (r *revealRepository) CreateGrant(ctx context.Context, revealerID, revealedToID string) error {
	g := &model.ProfileReveal{ID: uuid.New().String(), RevealerID: revealerID, RevealedToID: revealedToID}
	// 幂等：重复授权不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(g).Error
}

func (r *revealRepository) GrantExists(ctx context.Context, revealerID, revealedToID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ProfileReveal{}).
		Where("revealer_id = ? AND revealed_to_id = ?", revealerID, revealedToID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *revealRepository) DeleteGrant(ctx context.Context, revealerID, revealedToID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("revealer_id = ? AND revealed_to_id = ?", revealerID, revealedToID).
		Delete(&model.ProfileReveal{})
	return res.RowsAffected > 0, res.Error
}

func (r *revealRepository) ListGrantsByRevealer(ctx context.Context, revealerID string, offset, limit int) ([]*model.ProfileReveal, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&model.ProfileReveal{}).
		Where("revealer_id = ?", revealerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []*model.ProfileReveal
	err := r.db.WithContext(ctx).
		Where("revealer_id = ?", revealerID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

var (
	ErrRequestSelf      = errors.New("cannot request own profile")
	ErrRequestPending   = errors.New("a pending request already exists")
	ErrRequestNotFound  = errors.New("reveal request not found")
	ErrRequestForbidden = errors.New("not the requestee of this request")
	ErrGrantNotFound    = errors.New("no standing reveal towards this user")
)

// RevealService 查看请求与授权的生命周期
type RevealService interface {
	Send(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error)
	// DeleteByRequestee withdraws the requester's pending request towards
	// requesteeID and reports the resulting status (NONE).
	DeleteByRequestee(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error)
	Respond(ctx context.Context, requesteeID, requestID, status string) (*model.RevealRequest, error)
	Revoke(ctx context.Context, revealerID, revealedToID string) error
	// Status reports the latest request status requester->requestee, empty
	// string when no request ever existed.
	Status(ctx context.Context, requesterID, requesteeID string) (string, error)
	CanView(ctx context.Context, viewerID, ownerID string) (bool, error)
	ListIncoming(ctx context.Context, requesteeID string, page, pageSize int) ([]*model.RevealRequest, int64, error)
	ListSent(ctx context.Context, requesterID string, page, pageSize int) ([]*model.RevealRequest, int64, error)
	ListGrants(ctx context.Context, revealerID string, page, pageSize int) ([]*model.ProfileReveal, int64, error)
	CountPending(ctx context.Context, requesteeID string) (int64, error)
}

type revealService struct {
	repo repository.RevealRepository
}

func NewRevealService(repo repository.RevealRepository) RevealService {
	return &revealService{repo: repo}
}

func (s *revealService) Send(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error) {
	if requesterID == requesteeID {
		return nil, ErrRequestSelf
	}
	active, err := s.repo.ActiveRequest(ctx, requesterID, requesteeID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrRequestPending
	}
	return s.repo.CreateRequest(ctx, requesterID, requesteeID)
}

func (s *revealService) DeleteByRequestee(ctx context.Context, requesterID, requesteeID string) (*model.RevealRequest, error) {
	active, err := s.repo.ActiveRequest(ctx, requesterID, requesteeID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, ErrRequestNotFound
	}
	if err := s.repo.DeleteRequest(ctx, active.ID); err != nil {
		return nil, err
	}
	// 删除后请求不复存在，状态回到哨兵值
	gone := *active
	gone.Status = ""
	return &gone, nil
}

func (s *revealService) Respond(ctx context.Context, requesteeID, requestID, status string) (*model.RevealRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.RequesteeID != requesteeID {
		return nil, ErrRequestForbidden
	}
	// A decided request stays decided: re-deciding returns the row as-is.
	if req.Status != model.RequestPending {
		return req, nil
	}
	if err := s.repo.UpdateRequestStatus(ctx, req.ID, status); err != nil {
		return nil, err
	}
	req.Status = status
	if status == model.RequestAccepted {
		// 接受即生成独立的授权记录
		if err := s.repo.CreateGrant(ctx, req.RequesteeID, req.RequesterID); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func (s *revealService) Revoke(ctx context.Context, revealerID, revealedToID string) error {
	deleted, err := s.repo.DeleteGrant(ctx, revealerID, revealedToID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrGrantNotFound
	}
	return nil
}

func (s *revealService) Status(ctx context.Context, requesterID, requesteeID string) (string, error) {
	// 已有授权视为 ACCEPTED，与请求历史无关
	granted, err := s.repo.GrantExists(ctx, requesteeID, requesterID)
	if err != nil {
		return "", err
	}
	if granted {
		return model.RequestAccepted, nil
	}
	latest, err := s.repo.LatestRequest(ctx, requesterID, requesteeID)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "", nil
	}
	// A revoked acceptance reads as no request at all.
	if latest.Status == model.RequestAccepted {
		return "", nil
	}
	return latest.Status, nil
}

// CanView reports whether viewer may read owner's gated fields: the owner
// always can, anyone else needs a standing grant.
func (s *revealService) CanView(ctx context.Context, viewerID, ownerID string) (bool, error) {
	if viewerID == ownerID {
		return true, nil
	}
	return s.repo.GrantExists(ctx, ownerID, viewerID)
}

func (s *revealService) ListIncoming(ctx context.Context, requesteeID string, page, pageSize int) ([]*model.RevealRequest, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.repo.ListIncoming(ctx, requesteeID, (page-1)*pageSize, pageSize)
}

func (s *revealService) ListSent(ctx context.Context, requesterID string, page, pageSize int) ([]*model.RevealRequest, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.repo.ListSent(ctx, requesterID, (page-1)*pageSize, pageSize)
}

func (s *revealService) ListGrants(ctx context.Context, revealerID string, page, pageSize int) ([]*model.ProfileReveal, int64, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.repo.ListGrantsByRevealer(ctx, revealerID, (page-1)*pageSize, pageSize)
}

func (s *revealService) CountPending(ctx context.Context, requesteeID string) (int64, error) {
	return s.repo.CountPending(ctx, requesteeID)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

func setupRevealService(t *testing.T) RevealService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.RevealRequest{}, &model.ProfileReveal{}))
	return NewRevealService(repository.NewRevealRepository(db))
}

func TestRevealRequestHappyPath(t *testing.T) {
	svc := setupRevealService(t)
	ctx := context.Background()

	req, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, req.Status)

	// 在途期间重复发起被拒
	_, err = svc.Send(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrRequestPending)

	n, err := svc.CountPending(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	decided, err := svc.Respond(ctx, "bob", req.ID, model.RequestAccepted)
	require.NoError(t, err)
	require.Equal(t, model.RequestAccepted, decided.Status)

	ok, err := svc.CanView(ctx, "alice", "bob")
	require.NoError(t, err)
	require.True(t, ok)

	grants, total, err := svc.ListGrants(ctx, "bob", 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "alice", grants[0].RevealedToID)
}

func TestSendToSelfRejected(t *testing.T) {
	svc := setupRevealService(t)
	_, err := svc.Send(context.Background(), "alice", "alice")
	require.ErrorIs(t, err, ErrRequestSelf)
}

func TestRespondGuards(t *testing.T) {
	svc := setupRevealService(t)
	ctx := context.Background()

	req, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)

	// 只有 requestee 能裁决
	_, err = svc.Respond(ctx, "mallory", req.ID, model.RequestAccepted)
	require.ErrorIs(t, err, ErrRequestForbidden)
	_, err = svc.Respond(ctx, "bob", "no-such-id", model.RequestAccepted)
	require.ErrorIs(t, err, ErrRequestNotFound)

	_, err = svc.Respond(ctx, "bob", req.ID, model.RequestRejected)
	require.NoError(t, err)

	// 已裁决的请求保持原判
	again, err := svc.Respond(ctx, "bob", req.ID, model.RequestAccepted)
	require.NoError(t, err)
	require.Equal(t, model.RequestRejected, again.Status)

	ok, err := svc.CanView(ctx, "alice", "bob")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRejectionAllowsNewRequest(t *testing.T) {
	svc := setupRevealService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "bob", first.ID, model.RequestRejected)
	require.NoError(t, err)

	status, err := svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, model.RequestRejected, status)

	second, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestWithdrawResetsStatus(t *testing.T) {
	svc := setupRevealService(t)
	ctx := context.Background()

	req, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)

	gone, err := svc.DeleteByRequestee(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, req.ID, gone.ID)
	require.Empty(t, gone.Status)

	status, err := svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Empty(t, status)

	_, err = svc.DeleteByRequestee(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRevokeHidesAcceptedHistory(t *testing.T) {
	svc := setupRevealService(t)
	ctx := context.Background()

	req, err := svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.Respond(ctx, "bob", req.ID, model.RequestAccepted)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "bob", "alice"))

	ok, err := svc.CanView(ctx, "alice", "bob")
	require.NoError(t, err)
	require.False(t, ok)

	// 被撤销的接受读作从未请求过，允许重新发起
	status, err := svc.Status(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Empty(t, status)
	_, err = svc.Send(ctx, "alice", "bob")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Revoke(ctx, "bob", "alice"), ErrGrantNotFound)
}

func TestOwnerAlwaysViews(t *testing.T) {
	svc := setupRevealService(t)
	ok, err := svc.CanView(context.Background(), "alice", "alice")
	require.NoError(t, err)
	require.True(t, ok)
}

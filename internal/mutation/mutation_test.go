package mutation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver"
	"github.com/d60-Lab/reveal-client/internal/loader"
	"github.com/d60-Lab/reveal-client/internal/model"
	"github.com/d60-Lab/reveal-client/internal/mutation"
	"github.com/d60-Lab/reveal-client/internal/session"
)

// 端到端：mutation 变更走真实 HTTP 到内置后端，再校验补丁后的缓存视图。

type env struct {
	srv *devserver.Server
	ts  *httptest.Server
}

type actor struct {
	sess    *session.Session
	store   *cache.Store
	loaders *loader.Loaders
	mut     *mutation.Handlers
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv, err := devserver.New(config.DevServerConfig{
		DBDriver:  "sqlite",
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return &env{srv: srv, ts: ts}
}

func (e *env) signUp(t *testing.T, username string) *actor {
	t.Helper()
	store := cache.New()
	sess := session.New(store)
	c := api.New(e.ts.URL+"/api/v1", api.WithToken(sess.Token), api.WithTimeout(5*time.Second))
	sess.Bind(c)
	a := &actor{
		sess:    sess,
		store:   store,
		loaders: loader.New(c, store, nil, 10),
		mut:     mutation.New(c, store, sess.Username),
	}
	_, err := sess.SignUp(context.Background(), api.SignUpPayload{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-" + username,
	})
	require.NoError(t, err)
	return a
}

func (a *actor) profile(t *testing.T, username string) model.User {
	t.Helper()
	res := a.loaders.Profile(context.Background(), username)
	require.Empty(t, res.Redirect)
	return res.Data
}

func cached[T any](t *testing.T, s *cache.Store, key string) T {
	t.Helper()
	v, ok := cache.Get[T](s, key)
	require.True(t, ok, "expected cache entry %s", key)
	return v
}

func TestFollowUnfollowPatchesCachedProfiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	e.signUp(t, "bob")

	bobView := alice.profile(t, "bob")
	require.False(t, bobView.IsFollowedByCurrentUser)
	require.Equal(t, 0, bobView.FollowersCount)

	require.NoError(t, alice.mut.Follow(ctx, "bob"))

	bobView = cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.True(t, bobView.IsFollowedByCurrentUser)
	require.Equal(t, 1, bobView.FollowersCount)
	me := cached[model.User](t, alice.store, cache.ProfileKey("alice"))
	require.Equal(t, 1, me.FollowingCount)

	require.NoError(t, alice.mut.Unfollow(ctx, "bob"))

	bobView = cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.False(t, bobView.IsFollowedByCurrentUser)
	require.Equal(t, 0, bobView.FollowersCount)
	me = cached[model.User](t, alice.store, cache.ProfileKey("alice"))
	require.Equal(t, 0, me.FollowingCount)
}

func TestFollowPatchesOnlyOnFlagTransition(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	e.signUp(t, "bob")

	alice.profile(t, "bob")
	require.NoError(t, alice.mut.Follow(ctx, "bob"))
	// 重复关注：服务端幂等，缓存计数也不能二次 +1
	require.NoError(t, alice.mut.Follow(ctx, "bob"))

	bobView := cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.Equal(t, 1, bobView.FollowersCount)
}

func TestUnfollowFloorsFollowerCountAtZero(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	e.signUp(t, "bob")
	require.NoError(t, alice.mut.Follow(ctx, "bob"))

	// 人为写入一份计数落后的快照，取关后不能变成 -1
	alice.store.WriteWithRefs(cache.ProfileKey("bob"),
		model.User{UserSummary: model.UserSummary{Username: "bob"}, IsFollowedByCurrentUser: true},
		cache.UserRef("bob"))

	require.NoError(t, alice.mut.Unfollow(ctx, "bob"))

	bobView := cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.False(t, bobView.IsFollowedByCurrentUser)
	require.Equal(t, 0, bobView.FollowersCount)
}

func TestLikeUnlikePatchesEveryThreadCopy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	bob := e.signUp(t, "bob")

	require.NoError(t, alice.mut.Follow(ctx, "bob"))
	e.srv.DrainReplication(ctx)

	th, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, e.srv.ProcessFanout(ctx))

	for _, name := range []string{"carol", "dave", "erin"} {
		other := e.signUp(t, name)
		require.NoError(t, other.mut.LikeThread(ctx, th.ID))
	}

	// 后台 worker 也可能抢到这条 outbox，投递稍后才落地
	var feed loader.Result[model.Page[model.Thread]]
	require.Eventually(t, func() bool {
		alice.store.Drop(cache.ThreadListPrefix)
		feed = alice.loaders.Feed(ctx, 1)
		return len(feed.Data.Data) == 1
	}, 5*time.Second, 50*time.Millisecond)
	require.Empty(t, feed.Redirect)
	require.Equal(t, th.ID, feed.Data.Data[0].ID)

	detail := alice.loaders.Thread(ctx, th.ID)
	require.Empty(t, detail.Redirect)
	require.Equal(t, 3, detail.Data.LikeCount)
	require.False(t, detail.Data.IsLikedByCurrentUser)

	require.NoError(t, alice.mut.LikeThread(ctx, th.ID))

	feedPage := cached[model.Page[model.Thread]](t, alice.store, cache.FeedKey(1, alice.loaders.PageSize()))
	require.True(t, feedPage.Data[0].IsLikedByCurrentUser)
	require.Equal(t, 4, feedPage.Data[0].LikeCount)
	cachedDetail := cached[model.Thread](t, alice.store, cache.ThreadKey(th.ID))
	require.True(t, cachedDetail.IsLikedByCurrentUser)
	require.Equal(t, 4, cachedDetail.LikeCount)

	// 重复点赞不会二次计数
	require.NoError(t, alice.mut.LikeThread(ctx, th.ID))
	cachedDetail = cached[model.Thread](t, alice.store, cache.ThreadKey(th.ID))
	require.Equal(t, 4, cachedDetail.LikeCount)

	require.NoError(t, alice.mut.UnlikeThread(ctx, th.ID))
	cachedDetail = cached[model.Thread](t, alice.store, cache.ThreadKey(th.ID))
	require.False(t, cachedDetail.IsLikedByCurrentUser)
	require.Equal(t, 3, cachedDetail.LikeCount)
}

func TestReplyBumpsParentReplyCountAndInvalidatesLists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob := e.signUp(t, "bob")

	parent, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "root"})
	require.NoError(t, err)

	detail := bob.loaders.Thread(ctx, parent.ID)
	require.Empty(t, detail.Redirect)
	require.Equal(t, 0, detail.Data.ReplyCount)

	own := bob.loaders.UserThreads(ctx, "bob", 1)
	require.Empty(t, own.Redirect)
	listKey := cache.UserThreadsKey("bob", 1, bob.loaders.PageSize())

	_, err = bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "child", ParentID: parent.ID})
	require.NoError(t, err)

	cachedParent := cached[model.Thread](t, bob.store, cache.ThreadKey(parent.ID))
	require.Equal(t, 1, cachedParent.ReplyCount)
	require.True(t, bob.store.Stale(listKey), "list pages refetch after a new thread")
}

func TestRevealRequestLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	bob := e.signUp(t, "bob")

	bobView := alice.profile(t, "bob")
	require.Equal(t, model.RevealAbsent, bobView.RevealRequestStatus)

	req, err := alice.mut.SendRevealRequest(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, model.RevealPending, req.Status)

	bobView = cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.Equal(t, model.RevealPending, bobView.RevealRequestStatus)

	pending := bob.loaders.PendingCount(ctx)
	require.Equal(t, 1, pending.Data)
	incoming := bob.loaders.IncomingRequests(ctx, 1)
	require.Len(t, incoming.Data.Data, 1)
	require.Equal(t, req.ID, incoming.Data.Data[0].ID)
	require.Equal(t, model.RevealPending, incoming.Data.Data[0].Status)

	decided, err := bob.mut.RespondToRevealRequest(ctx, req.ID, model.DecisionAccepted)
	require.NoError(t, err)
	require.Equal(t, model.RevealAccepted, decided.Status)

	incomingKey := cache.IncomingRequestsKey(1, bob.loaders.PageSize())
	page := cached[model.Page[model.RevealRequest]](t, bob.store, incomingKey)
	require.Equal(t, model.RevealAccepted, page.Data[0].Status)
	require.True(t, bob.store.Stale(cache.PendingCountKey))

	granted := bob.loaders.RevealedByMe(ctx, 1)
	require.Equal(t, 1, granted.Data.Total)
	require.Equal(t, "alice", granted.Data.Data[0].RevealedTo.Username)
}

func TestWithdrawRequestRemovesFromSentPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	e.signUp(t, "bob")

	alice.profile(t, "bob")
	_, err := alice.mut.SendRevealRequest(ctx, "bob")
	require.NoError(t, err)

	sent := alice.loaders.SentRequests(ctx, 1)
	require.Equal(t, 1, sent.Data.Total)

	req, err := alice.mut.DeleteRevealRequestByUserName(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, model.RevealAbsent, req.Status)

	sentKey := cache.SentRequestsKey(1, alice.loaders.PageSize())
	page := cached[model.Page[model.RevealRequest]](t, alice.store, sentKey)
	require.Empty(t, page.Data)
	require.Equal(t, 0, page.Total)
	bobView := cached[model.User](t, alice.store, cache.ProfileKey("bob"))
	require.Equal(t, model.RevealAbsent, bobView.RevealRequestStatus)

	// 撤回后可以重新发起，产生新的请求 id
	again, err := alice.mut.SendRevealRequest(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, model.RevealPending, again.Status)
}

func TestRevokeProfileRevealRemovesGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.signUp(t, "alice")
	bob := e.signUp(t, "bob")

	_, err := alice.mut.SendRevealRequest(ctx, "bob")
	require.NoError(t, err)
	incoming := bob.loaders.IncomingRequests(ctx, 1)
	_, err = bob.mut.RespondToRevealRequest(ctx, incoming.Data.Data[0].ID, model.DecisionAccepted)
	require.NoError(t, err)

	granted := bob.loaders.RevealedByMe(ctx, 1)
	require.Equal(t, 1, granted.Data.Total)
	bob.profile(t, "alice")

	require.NoError(t, bob.mut.RevokeProfileReveal(ctx, "alice"))

	grantedKey := cache.RevealedByMeKey(1, bob.loaders.PageSize())
	page := cached[model.Page[model.ProfileReveal]](t, bob.store, grantedKey)
	require.Empty(t, page.Data)
	require.Equal(t, 0, page.Total)
	require.True(t, bob.store.Stale(cache.IncomingRequestsKey(1, bob.loaders.PageSize())))

	// 服务端视角：撤销后 alice 看 bob 回到初始状态
	alice.store.Drop(cache.ProfilePrefix)
	bobView := alice.profile(t, "bob")
	require.Equal(t, model.RevealAbsent, bobView.RevealRequestStatus)
	_, gated := bobView.Gated()
	require.False(t, gated)
}

func TestUpdateProfileRewritesOwnEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob := e.signUp(t, "bob")

	name := "Bob Example"
	bio := "hello"
	u, err := bob.mut.UpdateProfile(ctx, api.UpdateProfilePayload{FullName: &name, Biography: &bio})
	require.NoError(t, err)

	g, ok := u.Gated()
	require.True(t, ok, "owner view carries gated fields")
	require.Equal(t, name, g.FullName)

	cachedMe := cached[model.User](t, bob.store, cache.ProfileKey("bob"))
	cg, ok := cachedMe.Gated()
	require.True(t, ok)
	require.Equal(t, bio, cg.Biography)
}

func TestDeleteThreadDropsDetailAndShrinksPages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob := e.signUp(t, "bob")

	th, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "to be removed"})
	require.NoError(t, err)
	bob.loaders.Thread(ctx, th.ID)
	own := bob.loaders.UserThreads(ctx, "bob", 1)
	require.Equal(t, 1, own.Data.Total)

	require.NoError(t, bob.mut.DeleteThread(ctx, th.ID))

	_, ok := cache.Get[model.Thread](bob.store, cache.ThreadKey(th.ID))
	require.False(t, ok)
	listKey := cache.UserThreadsKey("bob", 1, bob.loaders.PageSize())
	page := cached[model.Page[model.Thread]](t, bob.store, listKey)
	require.Empty(t, page.Data)
	require.Equal(t, 0, page.Total)
}

func TestDeleteThreadLeavesUnrelatedListTotalsAlone(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob := e.signUp(t, "bob")

	a, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "first"})
	require.NoError(t, err)
	b, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "second"})
	require.NoError(t, err)
	_, err = bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "re: second", ParentID: b.ID})
	require.NoError(t, err)

	bob.loaders.Thread(ctx, a.ID)
	replies := bob.loaders.Replies(ctx, b.ID, 1)
	require.Equal(t, 1, replies.Data.Total)

	require.NoError(t, bob.mut.DeleteThread(ctx, a.ID))

	// 另一条帖子的回复页和它无关，总数不许被碰
	repliesKey := cache.RepliesKey(b.ID, 1, bob.loaders.PageSize())
	page := cached[model.Page[model.Thread]](t, bob.store, repliesKey)
	require.Equal(t, 1, page.Total)
	require.Len(t, page.Data, 1)
}

func TestUploadPhotoKeepsListWhenSlotBindFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /photos", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.Photo{ID: "p1", URL: "https://cdn.example.com/p1.jpg"})
	})
	mux.HandleFunc("PUT /profile/photos/private/p1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "slot bind failed", "statusCode": 500})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	store := cache.New()
	store.Write(cache.OwnPhotosKey, []model.Photo{})
	mut := mutation.New(api.New(ts.URL), store, func() string { return "bob" })

	// 服务端已收下照片，绑定槽位才失败；缓存列表必须带上这张照片
	photo, err := mut.UploadPhoto(context.Background(), "sunset.jpg", 64,
		strings.NewReader(strings.Repeat("x", 64)), mutation.SlotPrivate)
	require.Error(t, err)
	require.NotNil(t, photo)

	photos := cached[[]model.Photo](t, store, cache.OwnPhotosKey)
	require.Len(t, photos, 1)
	require.Equal(t, "p1", photos[0].ID)
}

func TestDeleteReplyShrinksParentCopies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	bob := e.signUp(t, "bob")

	parent, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "parent"})
	require.NoError(t, err)
	reply, err := bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "child", ParentID: parent.ID})
	require.NoError(t, err)

	detail := bob.loaders.Thread(ctx, parent.ID)
	require.Equal(t, 1, detail.Data.ReplyCount)
	bob.loaders.Thread(ctx, reply.ID)
	replies := bob.loaders.Replies(ctx, parent.ID, 1)
	require.Equal(t, 1, replies.Data.Total)

	require.NoError(t, bob.mut.DeleteThread(ctx, reply.ID))

	got := cached[model.Thread](t, bob.store, cache.ThreadKey(parent.ID))
	require.Equal(t, 0, got.ReplyCount)
	repliesKey := cache.RepliesKey(parent.ID, 1, bob.loaders.PageSize())
	page := cached[model.Page[model.Thread]](t, bob.store, repliesKey)
	require.Empty(t, page.Data)
	require.Equal(t, 0, page.Total)
}

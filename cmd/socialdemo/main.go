// socialdemo walks the client SDK through a full scenario against an
// in-process backend: two accounts, follow, a reveal request lifecycle,
// posting and liking. Useful as a smoke run and as usage documentation.
package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/d60-Lab/reveal-client/internal/api"
	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver"
	"github.com/d60-Lab/reveal-client/internal/loader"
	"github.com/d60-Lab/reveal-client/internal/model"
	"github.com/d60-Lab/reveal-client/internal/mutation"
	"github.com/d60-Lab/reveal-client/internal/session"
	"github.com/d60-Lab/reveal-client/pkg/logger"
)

type clientSet struct {
	sess    *session.Session
	store   *cache.Store
	loaders *loader.Loaders
	mut     *mutation.Handlers
}

func newClientSet(baseURL string) *clientSet {
	store := cache.New()
	sess := session.New(store)
	c := api.New(baseURL, api.WithToken(sess.Token), api.WithTimeout(5*time.Second))
	sess.Bind(c)
	notify := loader.NotifierFunc(func(msg string) { fmt.Println("  [notice]", msg) })
	return &clientSet{
		sess:    sess,
		store:   store,
		loaders: loader.New(c, store, notify, 10),
		mut:     mutation.New(c, store, sess.Username),
	}
}

func main() {
	if err := logger.Init("warn", ""); err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := must(config.Load(""))
	srv := must(devserver.New(cfg.DevServer))
	ctx := context.Background()
	defer srv.Shutdown(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	baseURL := ts.URL + "/api/v1"

	alice := newClientSet(baseURL)
	bob := newClientSet(baseURL)

	step("sign up two accounts")
	must(alice.sess.SignUp(ctx, api.SignUpPayload{
		Username: "alice", Email: "alice@example.com", Password: "secret-pass-1",
	}))
	must(bob.sess.SignUp(ctx, api.SignUpPayload{
		Username: "bob", Email: "bob@example.com", Password: "secret-pass-2",
	}))

	step("bob fills in gated profile fields")
	must(bob.mut.UploadPhoto(ctx, "sunset.jpg", 1024, strings.NewReader(strings.Repeat("x", 1024)), mutation.SlotPrivate))
	mustDo(func() error {
		_, err := bob.mut.CreateLink(ctx, "blog", "https://bob.example.com")
		return err
	}())

	step("alice follows bob")
	mustDo(alice.mut.Follow(ctx, "bob"))
	profile := alice.loaders.Profile(ctx, "bob")
	fmt.Printf("  bob followers=%d followedByMe=%v\n",
		profile.Data.FollowersCount, profile.Data.IsFollowedByCurrentUser)
	if _, ok := profile.Data.Gated(); ok {
		fmt.Println("  unexpected: gated fields visible before reveal")
	}

	step("alice requests a reveal, bob accepts")
	must(alice.mut.SendRevealRequest(ctx, "bob"))
	incoming := bob.loaders.IncomingRequests(ctx, 1)
	if len(incoming.Data.Data) == 0 {
		fmt.Println("  no incoming request found")
		os.Exit(1)
	}
	req := incoming.Data.Data[0]
	must(bob.mut.RespondToRevealRequest(ctx, req.ID, model.DecisionAccepted))

	// bob's answer invalidated nothing on alice's side; drop her copy so the
	// next profile read refetches
	alice.store.Invalidate(cache.ProfilePrefix)
	profile = alice.loaders.Profile(ctx, "bob")
	if gated, ok := profile.Data.Gated(); ok {
		fmt.Printf("  revealed: links=%d privatePhoto=%v\n",
			len(gated.Links), gated.PrivatePhoto != nil)
	}

	step("bob posts, alice sees it in her feed and likes it")
	srv.DrainReplication(ctx) // 粉丝冗余表写完，扇出才找得到 alice
	th := must(bob.mut.CreateThread(ctx, api.CreateThreadPayload{Content: "hello from bob"}))
	mustDo(srv.ProcessFanout(ctx))
	feed := alice.loaders.Feed(ctx, 1)
	for i := 0; i < 50 && len(feed.Data.Data) == 0; i++ {
		time.Sleep(100 * time.Millisecond)
		alice.store.Drop(cache.ThreadListPrefix)
		feed = alice.loaders.Feed(ctx, 1)
	}
	fmt.Printf("  feed items=%d\n", len(feed.Data.Data))
	mustDo(alice.mut.LikeThread(ctx, th.ID))
	thread := alice.loaders.Thread(ctx, th.ID)
	fmt.Printf("  thread likes=%d likedByMe=%v\n",
		thread.Data.LikeCount, thread.Data.IsLikedByCurrentUser)

	step("bob revokes the reveal")
	mustDo(bob.mut.RevokeProfileReveal(ctx, "alice"))
	alice.store.Invalidate(cache.ProfilePrefix)
	profile = alice.loaders.Profile(ctx, "bob")
	if _, ok := profile.Data.Gated(); ok {
		fmt.Println("  unexpected: gated fields still visible after revoke")
	} else {
		fmt.Println("  gated fields hidden again")
	}

	step("sign out clears the cache")
	aliceEntries := alice.store.Len()
	_ = alice.sess.SignOut(ctx)
	fmt.Printf("  cache entries %d -> %d\n", aliceEntries, alice.store.Len())

	fmt.Println("\ndone")
}

func step(name string) { fmt.Println("==>", name) }

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

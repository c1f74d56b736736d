// fanoutbench measures outbox fan-out: publish POSTS threads from an
// account with FANS followers, run the fan-out worker to completion, then
// sample feed-read latency. Tunables via env: FANS, POSTS, REPEAT.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver"
	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	srv, err := devserver.New(cfg.DevServer)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	defer srv.Shutdown(ctx)
	db := srv.DB()

	FANS := 5000
	if s := os.Getenv("FANS"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			FANS = v
		}
	}
	POSTS := 20
	if s := os.Getenv("POSTS"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			POSTS = v
		}
	}
	REPEAT := 50
	if s := os.Getenv("REPEAT"); s != "" {
		if v, e := strconv.Atoi(s); e == nil && v > 0 {
			REPEAT = v
		}
	}

	// seed: one author, FANS followers in the fans table
	author := model.User{ID: "author", Username: "author", Email: "author@example.com", PasswordHash: "p"}
	if err := db.Create(&author).Error; err != nil {
		panic(err)
	}
	fans := make([]model.User, FANS)
	fanRows := make([]model.Fan, FANS)
	for i := 0; i < FANS; i++ {
		id := uuid.NewString()
		fans[i] = model.User{ID: id, Username: "f" + id[:8], Email: id[:8] + "@example.com", PasswordHash: "p"}
		fanRows[i] = model.Fan{ID: uuid.NewString(), UserID: author.ID, FanID: id, CreatedAt: time.Now()}
	}
	if err := db.CreateInBatches(&fans, 1000).Error; err != nil {
		panic(err)
	}
	if err := db.CreateInBatches(&fanRows, 1000).Error; err != nil {
		panic(err)
	}

	threadSvc := service.NewThreadService(db)
	for i := 0; i < POSTS; i++ {
		_, err := threadSvc.Publish(ctx, author.ID, fmt.Sprintf("post %d", i), false, "", nil)
		if err != nil {
			panic(err)
		}
	}

	// drain the outbox and time it
	st := time.Now()
	for {
		if err := srv.ProcessFanout(ctx); err != nil {
			panic(err)
		}
		var pending int64
		db.Model(&model.Outbox{}).Where("status <> ?", "done").Count(&pending)
		if pending == 0 {
			break
		}
	}
	fanoutDur := time.Since(st)

	var delivered int64
	db.Model(&model.Inbox{}).Count(&delivered)

	// feed read latency from a fan's perspective
	reads := make([]time.Duration, 0, REPEAT)
	for i := 0; i < REPEAT; i++ {
		fan := fans[i%len(fans)]
		rs := time.Now()
		if _, _, err := threadSvc.Feed(ctx, fan.ID, 1, 20); err != nil {
			panic(err)
		}
		reads = append(reads, time.Since(rs))
	}

	pct := func(vs []time.Duration, p float64) time.Duration {
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(float64(len(xs)) * p)
		if k >= len(xs) {
			k = len(xs) - 1
		}
		return xs[k]
	}
	var sum time.Duration
	for _, d := range reads {
		sum += d
	}

	fmt.Printf("FANS=%d POSTS=%d REPEAT=%d\n", FANS, POSTS, REPEAT)
	fmt.Printf("Fan-out: %d deliveries in %v (%.0f/s)\n",
		delivered, fanoutDur, float64(delivered)/fanoutDur.Seconds())
	fmt.Printf("Feed read: avg=%v p95=%v p99=%v\n",
		sum/time.Duration(len(reads)), pct(reads, 0.95), pct(reads, 0.99))
}

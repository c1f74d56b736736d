// cachebench compares follower-list caching strategies against a seeded
// store. Set REVEAL_DEVSERVER_DSN / REVEAL_REDIS_ADDR to point at real
// backends; without a reachable redis it falls back to an embedded one.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/reveal-client/internal/cacheperf"
	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver"
	"github.com/d60-Lab/reveal-client/internal/devserver/model"
)

type request struct {
	page int
	size int
}

type userRequest struct {
	userID string
	req    request
}

func main() {
	ctx := context.Background()

	cfg := must(config.Load(""))

	srv := must(devserver.New(cfg.DevServer))
	defer srv.Shutdown(ctx)
	db := srv.DB()

	const (
		followerPool = 20000
		ttl          = 10 * time.Minute
		dbDelay      = 2 * time.Millisecond // 模拟主库往返
	)

	fmt.Println("Setting up test data...")

	owners := make([]model.User, 3)
	for i := range owners {
		owners[i] = model.User{
			ID:           fmt.Sprintf("owner%d", i+1),
			Username:     fmt.Sprintf("owner%d", i+1),
			Email:        fmt.Sprintf("owner%d@example.com", i+1),
			PasswordHash: "x",
		}
		mustDo(db.Create(&owners[i]).Error)
	}

	followers := make([]model.User, followerPool)
	for i := 0; i < followerPool; i++ {
		followers[i] = model.User{
			ID:           uuid.NewString(),
			Username:     fmt.Sprintf("fan_%d", i),
			Email:        fmt.Sprintf("fan_%d@example.com", i),
			PasswordHash: "x",
			IsIncognito:  i%7 == 0,
		}
	}
	mustDo(db.CreateInBatches(&followers, 1000).Error)

	// 三个账号的粉丝集合互有重叠
	base := time.Now()
	offsets := []int{0, followerPool / 4, followerPool * 3 / 8}
	for oi, owner := range owners {
		rows := make([]model.Fan, followerPool/2)
		for i := range rows {
			rows[i] = model.Fan{
				ID:        uuid.NewString(),
				UserID:    owner.ID,
				FanID:     followers[(i+offsets[oi])%followerPool].ID,
				CreatedAt: base.Add(-time.Duration(i) * time.Second),
			}
		}
		mustDo(db.CreateInBatches(&rows, 1000).Error)
	}
	fmt.Println("Test data ready: 3 accounts with overlapping follower sets")

	client, cleanup := openRedis(ctx, cfg.Redis.Addr)
	defer cleanup()

	svc := cacheperf.NewFollowerService(db, client, ttl, dbDelay)

	allReqs := make([]userRequest, 0, 9000)
	for _, owner := range owners {
		for _, r := range makeRequests(3000) {
			allReqs = append(allReqs, userRequest{owner.ID, r})
		}
	}

	results := make([]scenarioResult, 0, 3)
	for _, strat := range svc.Strategies() {
		// 无缓存的基线不需要预热
		warm := strat != svc.Direct
		results = append(results, runScenario(ctx, svc, strat, allReqs, warm, client))
	}

	fmt.Println("\nFollower list latency (9k req across 3 accounts, 20k users)")
	for i, strat := range svc.Strategies() {
		report(strat.Name(), results[i])
	}
}

func report(name string, r scenarioResult) {
	fmt.Printf("%-18s avg=%v p95=%v p99=%v db_page=%d db_index=%d db_user_bulk=%d cache_keys=%d mem=%s\n",
		name, avg(r.durations), pct(r.durations, 0.95), pct(r.durations, 0.99),
		r.counters.PageQueries, r.counters.IndexLoads, r.counters.UserBulkLoad,
		r.cacheKeys, formatBytes(r.memoryBytes),
	)
}

func openRedis(ctx context.Context, addr string) (*redis.Client, func()) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err == nil {
		return client, func() { client.Close() }
	}
	client.Close()

	fmt.Printf("redis at %s unreachable, using embedded server\n", addr)
	mini := must(miniredis.Run())
	client = redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return client, func() {
		client.Close()
		mini.Close()
	}
}

type scenarioResult struct {
	durations   []time.Duration
	counters    cacheperf.FollowerDBCounters
	cacheKeys   int
	memoryBytes int64
}

func runScenario(ctx context.Context, svc *cacheperf.FollowerService, strat cacheperf.Strategy, reqs []userRequest, warm bool, client *redis.Client) scenarioResult {
	client.FlushAll(ctx)
	svc.ResetCounters()

	if warm {
		fmt.Print("  Warming cache...")
		for _, r := range reqs {
			if _, err := strat.Page(ctx, r.userID, r.req.page, r.req.size); err != nil {
				panic(err)
			}
		}
		fmt.Println(" done")
	}

	fmt.Print("  Running benchmark...")
	out := make([]time.Duration, 0, len(reqs))
	for _, r := range reqs {
		start := time.Now()
		if _, err := strat.Page(ctx, r.userID, r.req.page, r.req.size); err != nil {
			panic(err)
		}
		out = append(out, time.Since(start))
	}
	fmt.Println(" done")

	keys, _ := client.Keys(ctx, "*").Result()

	var memBytes int64
	if info, err := client.Info(ctx, "memory").Result(); err == nil {
		memBytes = parseRedisMemory(info)
	}

	return scenarioResult{
		durations:   out,
		counters:    svc.Counters(),
		cacheKeys:   len(keys),
		memoryBytes: memBytes,
	}
}

// parseRedisMemory extracts used_memory from redis INFO output.
func parseRedisMemory(info string) int64 {
	lines := []rune(info)
	var result int64

	for i := 0; i < len(lines); {
		if i+12 < len(lines) && string(lines[i:i+12]) == "used_memory:" {
			i += 12
			var num int64
			for i < len(lines) && lines[i] >= '0' && lines[i] <= '9' {
				num = num*10 + int64(lines[i]-'0')
				i++
			}
			result = num
			break
		}
		i++
	}
	return result
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func makeRequests(n int) []request {
	sizes := []int{20, 40, 60}
	out := make([]request, n)
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		size := sizes[rnd.Intn(len(sizes))]
		page := 1
		if rnd.Float64() > 0.72 {
			// simulate deep pagination or different views
			page = 2 + rnd.Intn(120)
		}
		out[i] = request{page: page, size: size}
	}
	return out
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range vs {
		sum += v
	}
	return sum / time.Duration(len(vs))
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), vs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

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

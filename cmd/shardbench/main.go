// shardbench 对比单库与分库分表方案下时间线 inbox 的写入与读取性能。
// 需要本地 postgres：单库一个实例，分片方案 8 个实例（端口连续）。
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
)

const (
	// 测试参数
	UserCount       = 10000 // 1万用户
	EntriesPerUser  = 10    // 每个用户时间线10条
	BenchDuration   = 30    // 查询压测时长（秒）
	ConcurrentLevel = 100   // 并发数

	// 数据库连接参数
	SingleDBPort     = 5434
	ShardDBStartPort = 5440
)

type BenchResult struct {
	Name            string
	Duration        time.Duration
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	QPS             float64
	AvgLatency      time.Duration
	P50Latency      time.Duration
	P95Latency      time.Duration
	P99Latency      time.Duration
}

func main() {
	ctx := context.Background()

	fmt.Println("===== 时间线分库分表性能压测 =====")
	fmt.Printf("用户数: %d\n", UserCount)
	fmt.Printf("每用户时间线条数: %d\n", EntriesPerUser)
	fmt.Printf("总条目数: %d\n", UserCount*EntriesPerUser)
	fmt.Printf("查询压测时长: 每场景 %d秒\n", BenchDuration)
	fmt.Printf("并发数: %d\n\n", ConcurrentLevel)

	// ========== 单库压测 ==========
	fmt.Println(">>> 准备单库环境...")
	singleRepo := prepareSingleDB()
	if singleRepo == nil {
		fmt.Println("单库初始化失败")
		return
	}
	defer singleRepo.Close()

	fmt.Println(">>> 生成单库测试数据...")
	singleEntries, userIDs := generateEntries()
	fmt.Printf("生成了 %d 条时间线条目\n\n", len(singleEntries))

	fmt.Println("===== 单库压测 - 投递条目 =====")
	singleInsert := benchAppend(ctx, singleRepo, singleEntries, "单库")
	printBenchResult(singleInsert)

	time.Sleep(1 * time.Second)

	fmt.Println("\n===== 单库压测 - 读取时间线 =====")
	singleFeed := benchFeed(ctx, singleRepo, userIDs, "单库")
	printBenchResult(singleFeed)

	singleRepo.Close()

	// ========== 分库分表压测 ==========
	fmt.Println("\n>>> 准备分库分表环境...")
	shardedRepo := prepareShardedDB()
	if shardedRepo == nil {
		fmt.Println("分库分表初始化失败")
		return
	}
	defer shardedRepo.Close()

	fmt.Println(">>> 生成分库分表测试数据...")
	shardedEntries, _ := generateEntries()
	fmt.Printf("生成了 %d 条时间线条目\n\n", len(shardedEntries))

	fmt.Println("===== 分库分表压测 - 投递条目 =====")
	shardedInsert := benchAppend(ctx, shardedRepo, shardedEntries, "分库分表")
	printBenchResult(shardedInsert)

	time.Sleep(1 * time.Second)

	fmt.Println("\n===== 分库分表压测 - 读取时间线 =====")
	shardedFeed := benchFeed(ctx, shardedRepo, userIDs, "分库分表")
	printBenchResult(shardedFeed)

	// ========== 打印对比总结 ==========
	fmt.Println("\n===== 性能对比总结 =====")
	printComparison("投递条目", singleInsert, shardedInsert)
	printComparison("读取时间线", singleFeed, shardedFeed)

	fmt.Println("\n压测完成")
}

// prepareSingleDB 准备单库环境
func prepareSingleDB() repository.InboxRepository {
	dsn := fmt.Sprintf("host=localhost user=postgres password=postgres dbname=reveal port=%d sslmode=disable", SingleDBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Printf("连接单库失败: %v\n", err)
		return nil
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetMaxIdleConns(50)

	repo := repository.NewSingleDBInboxRepository(db)

	// 清理旧数据
	db.Exec("DROP TABLE IF EXISTS inbox")

	if err := repo.InitSchema(); err != nil {
		fmt.Printf("初始化单库表结构失败: %v\n", err)
		return nil
	}

	fmt.Println("单库环境准备完成")
	return repo
}

// prepareShardedDB 准备分库分表环境
func prepareShardedDB() repository.InboxRepository {
	var dbs []*gorm.DB

	for i := 0; i < repository.InboxShardCount; i++ {
		port := ShardDBStartPort + i
		dbName := fmt.Sprintf("inbox_shard_%d", i)
		dsn := fmt.Sprintf("host=localhost user=postgres password=postgres dbname=%s port=%d sslmode=disable", dbName, port)

		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			fmt.Printf("连接分片数据库 %d 失败: %v\n", i, err)
			return nil
		}

		sqlDB, _ := db.DB()
		sqlDB.SetMaxOpenConns(150)
		sqlDB.SetMaxIdleConns(30)

		dbs = append(dbs, db)

		for j := 0; j < repository.InboxTableCount; j++ {
			db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS inbox_%d", j))
		}
	}

	repo, err := repository.NewShardedInboxRepository(dbs)
	if err != nil {
		fmt.Printf("创建分库分表仓储失败: %v\n", err)
		return nil
	}

	if err := repo.InitSchema(); err != nil {
		fmt.Printf("初始化分库分表表结构失败: %v\n", err)
		return nil
	}

	fmt.Println("分库分表环境准备完成")
	return repo
}

// generateEntries 生成时间线测试数据
func generateEntries() ([]*model.Inbox, []string) {
	userIDs := make([]string, UserCount)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("user-%05d", i)
	}

	entries := make([]*model.Inbox, 0, UserCount*EntriesPerUser)
	baseTime := time.Now().Add(-30 * 24 * time.Hour)

	for _, userID := range userIDs {
		for i := 0; i < EntriesPerUser; i++ {
			created := baseTime.Add(time.Duration(rand.Intn(30*24*60)) * time.Minute)
			entries = append(entries, &model.Inbox{
				ID:        uuid.NewString(),
				UserID:    userID,
				ThreadID:  uuid.NewString(),
				Score:     created.UnixMilli(),
				CreatedAt: created,
			})
		}
	}

	return entries, userIDs
}

// benchAppend 压测投递性能（写入所有数据，不限制时间）
func benchAppend(ctx context.Context, repo repository.InboxRepository, entries []*model.Inbox, name string) *BenchResult {
	var (
		totalRequests   int64
		successRequests int64
		failedRequests  int64
		latencies       []time.Duration
		latencyMu       sync.Mutex
		wg              sync.WaitGroup
	)

	total := int64(len(entries))
	fmt.Printf("开始投递 %d 条...\n", total)

	startTime := time.Now()

	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				current := atomic.LoadInt64(&totalRequests)
				if current == 0 {
					continue
				}
				elapsed := time.Since(startTime)
				qps := float64(current) / elapsed.Seconds()
				fmt.Printf("  进度: %d/%d (%.1f%%) | 已用时: %v | QPS: %.0f\n",
					current, total, float64(current)/float64(total)*100, elapsed.Round(time.Second), qps)
			case <-progressDone:
				return
			}
		}
	}()

	for i := 0; i < ConcurrentLevel; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for idx := workerID; idx < len(entries); idx += ConcurrentLevel {
				entry := entries[idx]

				reqStart := time.Now()
				err := repo.Append(ctx, entry)
				latency := time.Since(reqStart)

				atomic.AddInt64(&totalRequests, 1)
				if err != nil {
					if atomic.AddInt64(&failedRequests, 1) <= 10 {
						fmt.Printf("投递失败: %v (user_id=%s)\n", err, entry.UserID)
					}
				} else {
					atomic.AddInt64(&successRequests, 1)
				}

				latencyMu.Lock()
				latencies = append(latencies, latency)
				latencyMu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	close(progressDone)

	duration := time.Since(startTime)
	fmt.Printf("投递完成，耗时: %v\n", duration.Round(time.Second))

	return calculateResult(name, duration, totalRequests, successRequests, failedRequests, latencies)
}

// benchFeed 压测时间线读取
func benchFeed(ctx context.Context, repo repository.InboxRepository, userIDs []string, name string) *BenchResult {
	var (
		totalRequests   int64
		successRequests int64
		failedRequests  int64
		latencies       []time.Duration
		latencyMu       sync.Mutex
		wg              sync.WaitGroup
	)

	fmt.Printf("开始时间线读取测试（将运行 %d 秒）...\n", BenchDuration)

	startTime := time.Now()
	stopTime := startTime.Add(BenchDuration * time.Second)

	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				current := atomic.LoadInt64(&totalRequests)
				success := atomic.LoadInt64(&successRequests)
				elapsed := time.Since(startTime)
				qps := float64(current) / elapsed.Seconds()
				fmt.Printf("  查询中: %d 请求 | 成功率: %.1f%% | 已运行: %ds | QPS: %.0f\n",
					current, float64(success)/float64(current)*100, int(elapsed.Seconds()), qps)
			case <-progressDone:
				return
			}
		}
	}()

	for i := 0; i < ConcurrentLevel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for time.Now().Before(stopTime) {
				userID := userIDs[rand.Intn(len(userIDs))]

				reqStart := time.Now()
				_, err := repo.Feed(ctx, userID, 20)
				latency := time.Since(reqStart)

				atomic.AddInt64(&totalRequests, 1)
				if err != nil {
					atomic.AddInt64(&failedRequests, 1)
				} else {
					atomic.AddInt64(&successRequests, 1)
				}

				latencyMu.Lock()
				latencies = append(latencies, latency)
				latencyMu.Unlock()
			}
		}()
	}

	wg.Wait()
	close(progressDone)

	return calculateResult(name, time.Since(startTime), totalRequests, successRequests, failedRequests, latencies)
}

// calculateResult 计算压测结果
func calculateResult(name string, duration time.Duration, total, success, failed int64, latencies []time.Duration) *BenchResult {
	qps := float64(total) / duration.Seconds()

	var totalLatency time.Duration
	for _, l := range latencies {
		totalLatency += l
	}
	var avgLatency time.Duration
	if len(latencies) > 0 {
		avgLatency = totalLatency / time.Duration(len(latencies))
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return &BenchResult{
		Name:            name,
		Duration:        duration,
		TotalRequests:   total,
		SuccessRequests: success,
		FailedRequests:  failed,
		QPS:             qps,
		AvgLatency:      avgLatency,
		P50Latency:      percentile(sorted, 0.50),
		P95Latency:      percentile(sorted, 0.95),
		P99Latency:      percentile(sorted, 0.99),
	}
}

// percentile 计算百分位数
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted))*p)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// printBenchResult 打印压测结果
func printBenchResult(result *BenchResult) {
	fmt.Printf("名称: %s\n", result.Name)
	fmt.Printf("耗时: %v\n", result.Duration)
	fmt.Printf("总请求数: %d\n", result.TotalRequests)
	fmt.Printf("成功请求: %d\n", result.SuccessRequests)
	fmt.Printf("失败请求: %d\n", result.FailedRequests)
	fmt.Printf("QPS: %.2f\n", result.QPS)
	fmt.Printf("平均延迟: %v\n", result.AvgLatency)
	fmt.Printf("P50 延迟: %v\n", result.P50Latency)
	fmt.Printf("P95 延迟: %v\n", result.P95Latency)
	fmt.Printf("P99 延迟: %v\n", result.P99Latency)
}

// printComparison 打印对比结果
func printComparison(operation string, single, sharded *BenchResult) {
	fmt.Printf("\n--- %s ---\n", operation)
	fmt.Printf("单库 QPS: %.2f\n", single.QPS)
	fmt.Printf("分库 QPS: %.2f\n", sharded.QPS)
	improvement := (sharded.QPS - single.QPS) / single.QPS * 100
	fmt.Printf("性能变化: %.2f%%\n", improvement)
	fmt.Printf("单库 P95: %v\n", single.P95Latency)
	fmt.Printf("分库 P95: %v\n", sharded.P95Latency)

	if sharded.QPS > single.QPS {
		fmt.Println("分库分表方案更优")
	} else {
		fmt.Println("单库方案更优")
	}
}

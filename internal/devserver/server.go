// Package devserver assembles a self-contained backend that speaks the same
// HTTP contract as the production API. It backs local development and the
// client's integration tests.
package devserver

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/reveal-client/internal/config"
	"github.com/d60-Lab/reveal-client/internal/devserver/handler"
	"github.com/d60-Lab/reveal-client/internal/devserver/model"
	"github.com/d60-Lab/reveal-client/internal/devserver/repository"
	"github.com/d60-Lab/reveal-client/internal/devserver/service"
	"github.com/d60-Lab/reveal-client/pkg/logger"
)

var memDBSeq atomic.Int64

// Server holds the assembled backend. Stop the background workers with
// Shutdown when done.
type Server struct {
	db         *gorm.DB
	engine     *gin.Engine
	replicator *service.FanReplicator
	fanout     *service.FanoutWorker
	stopFns    []func(context.Context) error
}

// New opens the database, runs migrations and builds the router. With the
// sqlite driver and an empty DSN each Server gets its own shared-cache
// in-memory database, so parallel tests do not step on each other.
func New(cfg config.DevServerConfig) (*Server, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	if err := seedTags(db); err != nil {
		return nil, err
	}

	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	revealRepo := repository.NewRevealRepository(db)

	replicator := service.NewFanReplicator(fanRepo, 1024)
	relSvc := service.NewRelationshipService(db, followRepo, fanRepo, replicator)
	revealSvc := service.NewRevealService(revealRepo)
	threadSvc := service.NewThreadService(db)
	fanout := service.NewFanoutWorker(db, fanRepo, 2, 100, 50, 200*time.Millisecond)

	h := handler.New(db, relSvc, revealSvc, threadSvc, cfg.JWTSecret, cfg.TokenTTL)

	s := &Server{
		db:         db,
		replicator: replicator,
		fanout:     fanout,
	}
	s.stopFns = append(s.stopFns, replicator.Start(2), fanout.Start())
	s.engine = buildRouter(h)
	return s, nil
}

func openDB(cfg config.DevServerConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	switch cfg.DBDriver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" || dsn == "file::memory:?cache=shared" {
			// 每个实例独立的内存库
			dsn = fmt.Sprintf("file:devserver%d?mode=memory&cache=shared", memDBSeq.Add(1))
		}
		db, err := gorm.Open(sqlite.Open(dsn), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite 内存库在最后一个连接关闭时销毁
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		return db, nil
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Tag{},
		&model.Follow{},
		&model.Fan{},
		&model.RevealRequest{},
		&model.ProfileReveal{},
		&model.Thread{},
		&model.ThreadLike{},
		&model.Media{},
		&model.Outbox{},
		&model.Inbox{},
		&model.Photo{},
		&model.Link{},
	)
}

var defaultTags = []string{
	"music", "movies", "books", "travel", "food",
	"fitness", "gaming", "photography", "art", "tech",
}

func seedTags(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Tag{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tags := make([]model.Tag, len(defaultTags))
	for i, name := range defaultTags {
		tags[i] = model.Tag{ID: fmt.Sprintf("tag-%02d", i+1), Name: name}
	}
	return db.Create(&tags).Error
}

func buildRouter(h *handler.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("devserver"))

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/sign-up", h.SignUp)
		auth.POST("/sign-in", h.SignIn)
		auth.POST("/sign-out", h.SignOut)
	}

	authed := v1.Group("")
	authed.Use(h.AuthRequired())
	{
		authed.GET("/users", h.SearchUsers)
		authed.GET("/users/:username", h.GetProfile)
		authed.GET("/users/:username/followers", h.ListFollowers)
		authed.GET("/users/:username/following", h.ListFollowing)
		authed.POST("/users/:username/follow", h.Follow)
		authed.DELETE("/users/:username/follow", h.Unfollow)
		authed.GET("/users/:username/threads", h.ListUserThreads)

		authed.PATCH("/profile", h.UpdateProfile)
		authed.PUT("/profile/photos/public/:id", h.SetPublicPhoto)
		authed.PUT("/profile/photos/private/:id", h.SetPrivatePhoto)
		authed.DELETE("/profile/photos/public", h.UnsetPublicPhoto)
		authed.DELETE("/profile/photos/private", h.UnsetPrivatePhoto)

		authed.GET("/tags", h.ListTags)

		authed.POST("/reveals/request/:username", h.SendRevealRequest)
		authed.DELETE("/reveals/request/user/:username", h.DeleteRevealRequestByUser)
		authed.PATCH("/reveals/request/:id", h.RespondToRevealRequest)
		authed.DELETE("/reveals/revealed/:username", h.RevokeProfileReveal)
		authed.GET("/reveals/requests/incoming", h.ListIncomingRequests)
		authed.GET("/reveals/requests/sent", h.ListSentRequests)
		authed.GET("/reveals/requests/pending-count", h.PendingRequestCount)
		authed.GET("/reveals/revealed", h.ListRevealedByMe)

		authed.GET("/threads/feed", h.GetFeed)
		authed.GET("/threads/:id", h.GetThread)
		authed.GET("/threads/:id/replies", h.ListReplies)
		authed.POST("/threads", h.CreateThread)
		authed.PATCH("/threads/:id", h.UpdateThread)
		authed.DELETE("/threads/:id", h.DeleteThread)
		authed.POST("/threads/:id/like", h.LikeThread)
		authed.DELETE("/threads/:id/like", h.UnlikeThread)

		authed.POST("/photos", h.UploadPhoto)
		authed.GET("/photos", h.ListPhotos)
		authed.DELETE("/photos/:id", h.DeletePhoto)

		authed.GET("/links", h.ListLinks)
		authed.POST("/links", h.CreateLink)
		authed.PATCH("/links/:id", h.UpdateLink)
		authed.DELETE("/links/:id", h.DeleteLink)
	}

	return r
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler { return s.engine }

// DB exposes the underlying store for seeding test fixtures.
func (s *Server) DB() *gorm.DB { return s.db }

// DrainReplication blocks until queued fan-table writes have been applied.
func (s *Server) DrainReplication(ctx context.Context) {
	s.replicator.Drain(ctx)
}

// ProcessFanout runs one synchronous fan-out pass over the outbox.
func (s *Server) ProcessFanout(ctx context.Context) error {
	return s.fanout.ProcessOnce(ctx)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("devserver listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, stop := range s.stopFns {
		if err := stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bodycontrol/internal/backup"
	"github.com/dukerupert/bodycontrol/internal/database"
	"github.com/dukerupert/bodycontrol/internal/handler"
	"github.com/dukerupert/bodycontrol/internal/middleware"
	"github.com/dukerupert/bodycontrol/internal/store"
	ws "github.com/dukerupert/bodycontrol/internal/websocket"
)

const (
	delayLimit  = 10
	delayPeriod = time.Minute
)

type Config struct {
	Backup backup.Config
	// TrustProxy keys rate limits on CF-Connecting-IP / X-Forwarded-For.
	TrustProxy bool
}

type Server struct {
	db            *database.DB
	hub           *ws.Hub
	memberH       *handler.MemberHandler
	weightH       *handler.WeightHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	clientKey     func(*http.Request) string
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *database.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	backupMgr := backup.NewManager(cfg.Backup, db, store.NewBackupStore(db), func(s backup.Status) {
		hub.Broadcast(ws.BackupChanged(string(s.State), s.InProgress, s.Error))
	}, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		memberH:       handler.NewMemberHandler(store.NewMemberStore(db), hub, logger.With("component", "member")),
		weightH:       handler.NewWeightHandler(store.NewWeightStore(db), hub, logger.With("component", "weight")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		clientKey:     middleware.ClientKey(cfg.TrustProxy),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Hub returns the change feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Collection routes answer with and without the trailing slash.
	mux.HandleFunc("POST /member", s.memberH.Create)
	mux.HandleFunc("POST /member/{$}", s.memberH.Create)
	mux.HandleFunc("GET /member", s.memberH.List)
	mux.HandleFunc("GET /member/{$}", s.memberH.List)
	mux.HandleFunc("DELETE /member/{id}", s.memberH.Delete)

	mux.HandleFunc("POST /weight", s.weightH.Create)
	mux.HandleFunc("POST /weight/{$}", s.weightH.Create)
	mux.HandleFunc("GET /weight", s.weightH.List)
	mux.HandleFunc("GET /weight/{$}", s.weightH.List)
	mux.HandleFunc("DELETE /weight/{id}", s.weightH.Delete)

	mux.HandleFunc("GET /{$}", handler.Greeting)
	mux.HandleFunc("GET /hello/world", handler.Greeting)
	mux.Handle("GET /delay/{seconds}", middleware.RateLimit(s.rateLimiter, s.clientKey, delayLimit, delayPeriod)(http.HandlerFunc(handler.Delay)))

	mux.HandleFunc("GET /health", handler.Health(s.db))
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	mux.HandleFunc("GET /backups", s.backupH.List)
	mux.HandleFunc("POST /backups", s.backupH.Run)

	// Everything else, including a known path with the wrong method.
	mux.HandleFunc("/", handler.NotFound)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

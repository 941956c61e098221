// Command server starts the cookstream API HTTP service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cookstream/internal/api"
	"cookstream/internal/auth"
	"cookstream/internal/chat"
	"cookstream/internal/notify"
	"cookstream/internal/observability/logging"
	"cookstream/internal/observability/metrics"
	"cookstream/internal/server"
	"cookstream/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or mongo)")
	mongoURI := flag.String("mongo-uri", "", "MongoDB connection string")
	mongoDatabase := flag.String("mongo-database", "", "MongoDB database name")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or mongo)")
	sessionTTL := flag.Duration("session-ttl", 0, "absolute session lifetime")
	sessionIdleTimeout := flag.Duration("session-idle-timeout", 0, "idle timeout before a session expires")
	sessionPurgeInterval := flag.Duration("session-purge-interval", time.Hour, "interval between expired session sweeps")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	chatQueueDriver := flag.String("chat-queue-driver", "", "chat queue driver (memory or redis)")
	chatRedisAddr := flag.String("chat-redis-addr", "", "Redis address for the chat queue")
	chatRedisUsername := flag.String("chat-redis-username", "", "Redis username for the chat queue")
	chatRedisPassword := flag.String("chat-redis-password", "", "Redis password for the chat queue")
	chatRedisStream := flag.String("chat-redis-stream", "", "Redis stream key for chat events")
	chatRedisGroup := flag.String("chat-redis-group", "", "Redis consumer group for chat events")
	chatHistoryLimit := flag.Int("chat-history-limit", 0, "buffered messages retained per stream for replay")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("COOKSTREAM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("COOKSTREAM_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	listenAddr := firstNonEmpty(*addr, os.Getenv("COOKSTREAM_ADDR"), ":8080")
	driver := strings.ToLower(firstNonEmpty(*storageDriver, os.Getenv("COOKSTREAM_STORAGE_DRIVER"), "json"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Repository
	var mongoRepo *storage.MongoRepository
	switch driver {
	case "json":
		path := firstNonEmpty(*dataPath, os.Getenv("COOKSTREAM_DATA"), "data/store.json")
		jsonStore, err := storage.NewStorage(path)
		if err != nil {
			logger.Error("failed to open json store", "path", path, "error", err)
			os.Exit(1)
		}
		store = jsonStore
		logger.Info("using json datastore", "path", path)
	case "mongo":
		uri := firstNonEmpty(*mongoURI, os.Getenv("COOKSTREAM_MONGO_URI"))
		database := firstNonEmpty(*mongoDatabase, os.Getenv("COOKSTREAM_MONGO_DATABASE"), "cookstream")
		repo, err := storage.NewMongoRepository(ctx, uri, database)
		if err != nil {
			logger.Error("failed to connect to mongo", "error", err)
			os.Exit(1)
		}
		mongoRepo = repo
		store = repo
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				logger.Warn("mongo disconnect failed", "error", err)
			}
		}()
		logger.Info("using mongo datastore", "database", database)
	default:
		logger.Error("unknown storage driver", "driver", driver)
		os.Exit(1)
	}

	sessionOpts := []auth.SessionOption{}
	if *sessionIdleTimeout > 0 {
		sessionOpts = append(sessionOpts, auth.WithIdleTimeout(*sessionIdleTimeout))
	}
	sessionDriver := strings.ToLower(firstNonEmpty(*sessionStoreDriver, os.Getenv("COOKSTREAM_SESSION_STORE"), "memory"))
	switch sessionDriver {
	case "memory":
	case "mongo":
		if mongoRepo == nil {
			logger.Error("session-store mongo requires storage-driver mongo")
			os.Exit(1)
		}
		sessionStore, err := auth.NewMongoSessionStore(mongoRepo.Database())
		if err != nil {
			logger.Error("failed to initialise mongo session store", "error", err)
			os.Exit(1)
		}
		sessionOpts = append(sessionOpts, auth.WithStore(sessionStore))
	default:
		logger.Error("unknown session store driver", "driver", sessionDriver)
		os.Exit(1)
	}
	sessions := auth.NewSessionManager(*sessionTTL, sessionOpts...)

	notifier := notify.NewEngine(store, logger)

	queueDriver := strings.ToLower(firstNonEmpty(*chatQueueDriver, os.Getenv("COOKSTREAM_CHAT_QUEUE_DRIVER"), "memory"))
	var queue chat.Queue
	switch queueDriver {
	case "memory":
		queue = chat.NewMemoryQueue(0)
	case "redis":
		redisQueue, err := chat.NewRedisQueue(chat.RedisQueueConfig{
			Addr:     firstNonEmpty(*chatRedisAddr, os.Getenv("COOKSTREAM_CHAT_REDIS_ADDR")),
			Username: firstNonEmpty(*chatRedisUsername, os.Getenv("COOKSTREAM_CHAT_REDIS_USERNAME")),
			Password: firstNonEmpty(*chatRedisPassword, os.Getenv("COOKSTREAM_CHAT_REDIS_PASSWORD")),
			Stream:   firstNonEmpty(*chatRedisStream, os.Getenv("COOKSTREAM_CHAT_REDIS_STREAM")),
			Group:    firstNonEmpty(*chatRedisGroup, os.Getenv("COOKSTREAM_CHAT_REDIS_GROUP")),
			Logger:   logger,
		})
		if err != nil {
			logger.Error("failed to initialise redis chat queue", "error", err)
			os.Exit(1)
		}
		queue = redisQueue
	default:
		logger.Error("unknown chat queue driver", "driver", queueDriver)
		os.Exit(1)
	}

	gateway := chat.NewGateway(chat.GatewayConfig{
		Queue:             queue,
		Store:             store,
		Logger:            logger,
		HeartbeatInterval: 30 * time.Second,
	})
	history := chat.NewHistory(queue, *chatHistoryLimit)
	defer history.Close()

	handler := api.NewHandler(store, sessions)
	handler.Notifier = notifier
	handler.ChatGateway = gateway
	handler.ChatHistory = history
	handler.Metrics = recorder

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("COOKSTREAM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("COOKSTREAM_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     *globalRPS,
			GlobalBurst:   *globalBurst,
			LoginLimit:    *loginLimit,
			LoginWindow:   *loginWindow,
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("COOKSTREAM_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("COOKSTREAM_RATE_REDIS_PASSWORD")),
		},
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	stopPurge := startSessionPurgeWorker(ctx, logger, sessions, *sessionPurgeInterval)
	defer stopPurge()

	logger.Info("server listening", "addr", listenAddr)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

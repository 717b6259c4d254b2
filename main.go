package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/handlers"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/claims"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/config"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/database"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/oidc"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roleassign"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/sessions"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/storage"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/supporters"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/users"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/logger"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/metrics"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL env: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: identity=%v mongo=%v redis=%v", cfg.Identity.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS for dev/test; production sits behind a stricter proxy.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	ctx := context.Background()

	// Redis early: sessions, claims mirror, blacklist and the distributed
	// rate limiter all prefer it
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			redisClient = nil
		} else {
			logger.Infof("Connected to Redis: %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	blacklist := sessions.NewBlacklist(redisClient)

	// OIDC verifier for the identity provider
	var verifier middleware.Verifier
	if cfg.Identity.URL != "" && cfg.Identity.ClientID != "" && cfg.Identity.Realm != "" {
		issuer := strings.TrimRight(cfg.Identity.URL, "/") + "/realms/" + cfg.Identity.Realm
		if ver, err := oidc.NewVerifier(ctx, issuer, cfg.Identity.ClientID); err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if verifier == nil && strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	// Role store: MongoDB when configured, in-memory fallback otherwise
	// (fallback keeps local development working without a database).
	var userRepo users.UserRepository
	var supporterRepo supporters.Repository
	var txRunner database.TxRunner
	var mongoClient *mongo.Client
	if cfg.MongoDB.URI != "" {
		var errConn error
		mongoClient, errConn = database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if errConn != nil {
			logger.Warnf("could not connect to MongoDB: %v", errConn)
			mongoClient = nil
		} else {
			defer func() { _ = mongoClient.Disconnect(ctx) }()
			db := mongoClient.Database(cfg.MongoDB.Database)
			usersCol := db.Collection("users")
			userRepo = users.NewMongoUserRepository(usersCol)
			supporterRepo = supporters.NewMongoRepository(db.Collection("supporters"))
			txRunner = database.NewMongoTxRunner(mongoClient)

			if n, err := users.MigrateLegacyOwnership(ctx, usersCol); err != nil {
				logger.Warnf("legacy ownership migration: %v", err)
			} else if n > 0 {
				logger.Infof("migrated %d legacy ownership records", n)
			}
		}
	}
	if userRepo == nil {
		logger.Warn("running with in-memory role store (no MongoDB configured)")
		userRepo = users.NewMemoryUserRepository()
		supporterRepo = supporters.NewMemoryRepository()
		txRunner = database.NewMutexTxRunner()
	}

	userSvc := users.NewService(userRepo)
	supporterSvc := supporters.NewService(supporterRepo)

	// sessions: Redis preferred, Mongo fallback
	var sessionsSvc *sessions.Service
	if redisClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(redisClient, "session:"))
		logger.Infof("Using Redis for session storage")
	} else if mongoClient != nil {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(mongoClient.Database(cfg.MongoDB.Database).Collection("sessions")))
	}

	var mirror claims.Mirror
	if redisClient != nil {
		mirror = claims.NewRedisMirror(redisClient, "claims:", time.Hour)
	} else {
		mirror = claims.NewMemoryMirror()
	}

	var revoker roleassign.SessionRevoker
	if sessionsSvc != nil {
		revoker = sessionsSvc
	}
	assignSvc := roleassign.NewService(userRepo, supporterRepo, mirror, revoker, txRunner)

	var imageStore *storage.ImageStore
	if cfg.MinIO.Endpoint != "" {
		if imageStore, err = storage.NewImageStore(&cfg.MinIO); err != nil {
			logger.Warnf("object storage unavailable: %v", err)
			imageStore = nil
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness: 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{}
		deps["store"] = mongoClient != nil || cfg.MongoDB.URI == ""
		if !deps["store"] {
			ready = false
		}
		deps["sessions"] = sessionsSvc != nil
		if !deps["sessions"] {
			ready = false
		}
		if cfg.Identity.URL != "" {
			deps["oidc"] = verifier != nil
			if !deps["oidc"] {
				ready = false
			}
		} else {
			deps["oidc"] = true
		}
		status := http.StatusOK
		body := gin.H{"status": "ready", "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))}
		if !ready {
			status = http.StatusServiceUnavailable
			body["status"] = "not_ready"
		}
		c.JSON(status, body)
	})

	supporterHandler := handlers.NewSupporterHandler(supporterSvc, imageStore, mirror)
	api := r.Group("/api/v1")
	supporterHandler.RegisterPublic(api)

	if sessionsSvc != nil {
		authHandler := handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, blacklist)
		authHandler.Register(r.Group("/"))
	} else {
		logger.Warnf("auth handlers not registered because no session store is available")
	}

	if verifier != nil {
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware(verifier, blacklist))
		handlers.NewRoleHandler(assignSvc, userSvc).Register(authed)
		supporterHandler.RegisterAuthed(authed)
		authed.GET("/me", func(c *gin.Context) {
			cm := middleware.ClaimsFromContext(c)
			if u, err := userSvc.UpsertFromClaims(c.Request.Context(), cm); err == nil && u != nil {
				c.JSON(http.StatusOK, gin.H{"user": u})
				return
			}
			c.JSON(http.StatusOK, gin.H{"claims": cm})
		})
	} else {
		logger.Warnf("privileged routes not registered because no token verifier is configured")
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting directory service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

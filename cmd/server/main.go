package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aibekov/fitplanner/docs"
	"github.com/aibekov/fitplanner/internal/ai"
	"github.com/aibekov/fitplanner/internal/avatar"
	"github.com/aibekov/fitplanner/internal/config"
	api "github.com/aibekov/fitplanner/internal/http"
	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/mail"
	"github.com/aibekov/fitplanner/internal/metrics"
	"github.com/aibekov/fitplanner/internal/oauth"
	"github.com/aibekov/fitplanner/internal/queue"
	"github.com/aibekov/fitplanner/internal/repo"
)

// @title FitPlanner API
// @version 1.0
// @description Fitness planner backend: registration with email OTP verification, credential and OAuth sign-in, workout preferences, AI-generated workout plans.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := log.Init(os.Getenv("APP_ENV") == "production")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureUserIndexes(ctx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if rp, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
			logger.Warn("rabbit connect, events disabled", zap.Error(err))
		} else {
			pub = rp
		}
	}
	defer pub.Close()

	sender := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	gemini := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)

	var uploader api.AvatarUploader
	if cfg.CloudinaryCloud != "" {
		up, err := avatar.NewUploader(cfg.CloudinaryCloud, cfg.CloudinaryKey, cfg.CloudinarySecret)
		if err != nil {
			logger.Warn("cloudinary init, avatar uploads disabled", zap.Error(err))
		} else {
			uploader = up
		}
	}

	h := api.NewHandler(store, sender, gemini, uploader, pub, cfg)

	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		if err := rds.Ping(ctx); err != nil {
			logger.Warn("redis ping, rate limiting disabled", zap.Error(err))
		} else {
			h.Redis = rds
			defer rds.Close()
		}
	}

	cbBase := cfg.OAuthRedirectBase + "/api/auth/oauth"
	if cfg.GoogleClientID != "" {
		h.Providers["google"] = oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cbBase+"/google/callback")
	}
	if cfg.GitHubClientID != "" {
		h.Providers["github"] = oauth.NewGitHub(cfg.GitHubClientID, cfg.GitHubClientSecret, cbBase+"/github/callback")
	}

	docs.SwaggerInfo.BasePath = "/"

	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("fitplanner listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}

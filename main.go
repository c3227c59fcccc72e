package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"aura-api/api"
	"aura-api/board"
	"aura-api/config"
	"aura-api/llm"
	"aura-api/storage"
)

const maxRequestBytes = 8 << 20

func main() {
	config.Debug()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	names, err := config.StorageNames()
	if err != nil {
		log.Fatal(err)
	}
	base, err := storage.New(connStr, names)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisOpts, err := config.RedisOptions(os.Getenv("REDIS_CONNECTION_STRING"))
	if err != nil {
		log.Fatal(err)
	}
	rc := redis.NewClient(redisOpts)

	settingsTTL, err := config.Duration("SETTINGS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	store := storage.NewCache(base, rc, settingsTTL)

	dedupeTTL, err := config.Duration("DEDUPER_TTL", 24*time.Hour)
	if err != nil {
		log.Fatal(err)
	}
	deduper := api.NewRedisDeduper(rc, dedupeTTL)

	var jwks *keyfunc.JWKS
	var audience, issuer string
	if os.Getenv("LOCAL_AUTH_MODE") == "" {
		audience = os.Getenv("AUTH0_AUDIENCE")
		domain := os.Getenv("AUTH0_DOMAIN")
		if audience == "" || domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err = keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		issuer = "https://" + domain + "/"
	}
	auth, err := api.NewAuth(jwks, audience, issuer)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	logger := log.StandardLogger()
	kanbanOpts, err := config.KanbanOptions(logger)
	if err != nil {
		log.Fatal(err)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, api.HeaderIdempotencyKey},
	}))
	e.Use(api.GzipRequestMiddleware(maxRequestBytes))

	api.Register(e, &api.Deps{
		Store:    store,
		Auth:     auth,
		Deduper:  deduper,
		Boards:   api.KanbanBoards(kanbanOpts...),
		Models:   llm.GeminiFactory(os.Getenv("GEMINI_MODEL")),
		Location: board.LoadLocation(os.Getenv("DEADLINE_TIMEZONE")),
		Log:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(config.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server.shutdown_failed")
	}
	if jwks != nil {
		jwks.EndBackground()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer.shutdown_failed")
	}
	if err := rc.Close(); err != nil {
		log.WithError(err).Warn("redis.close_failed")
	}
}

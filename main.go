package main

import (
	"context"
	"errors"
	"net/http"
	"ogio/internal/adapters/converter"
	"ogio/internal/adapters/errorlog"
	"ogio/internal/adapters/file"
	"ogio/internal/adapters/handler"
	"ogio/internal/adapters/memory"
	"ogio/internal/adapters/notifier"
	"ogio/internal/adapters/settings"
	"ogio/internal/adapters/store"
	"ogio/internal/core/port"
	"ogio/internal/core/service"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

func main() {
	log.Info().Msg("starting ogio...")

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.SetEnvPrefix("OGIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	log.Info().Msg("reading config file...")
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("could not read config file")
		}
		log.Warn().Msg("no config file found, using defaults")
	}

	var logLevel zerolog.Level

	switch v.GetString("server.log_level") {
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	logger := log.Logger

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(v.GetString("database.path"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed initializing database")
	}
	defer db.Close()

	repo := store.NewRepository(db)

	var settingsRepo port.SettingsRepository
	switch v.GetString("settings.backend") {
	case "database":
		settingsRepo = repo
	default:
		settingsRepo = settings.NewViperSettings(v)
	}

	storage, err := file.NewStorage(afero.NewOsFs(), v.GetString("storage.root"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed initializing asset storage")
	}
	log.Info().Str("root", storage.Root()).Msg("serving assets")

	var seed store.Seed
	if err := v.UnmarshalKey("seed", &seed); err != nil {
		log.Fatal().Err(err).Msg("could not read seed table")
	}
	if !seed.Empty() {
		if err := repo.Import(ctx, seed, afero.NewOsFs(), storage); err != nil {
			log.Fatal().Err(err).Msg("failed importing seed data")
		}
	}

	probe := memory.NewRuntimeProbe(v.GetInt64("memory.ceiling"), v.GetInt64("memory.max_ceiling"),
		v.GetBool("memory.apply_limit"))

	ring := errorlog.NewRing(v.GetInt("admin.error_log_size"))
	sinks := errorlog.Fanout{ring}

	if token := v.GetString("telegram.bot_token"); token != "" {
		b, err := bot.New(token, bot.WithSkipGetMe())
		if err != nil {
			log.Fatal().Err(err).Msg("failed initializing telegram bot")
		}
		alerts := notifier.NewTelegramNotifier(ctx, b, v.GetInt64("telegram.chat_id"), v.GetDuration("telegram.timeout"))
		sinks = append(sinks, service.NewAlertThrottle(ctx, alerts, v.GetInt("telegram.daily_alert_limit"), logger))
		log.Info().Msg("telegram alerts enabled")
	} else {
		log.Warn().Msg("telegram bot token not provided, alerts disabled")
	}

	imageConverter := converter.NewImagingConverter()
	limits := service.ValidationLimits{
		MaxFileSize:  v.GetInt64("limits.max_file_size"),
		MinDimension: v.GetInt("limits.min_dimension"),
		MaxDimension: v.GetInt("limits.max_dimension"),
	}

	configResolver := service.NewConfigResolver(settingsRepo, repo, logger)
	dispatcher := service.NewRequestDispatcher(
		configResolver,
		repo,
		service.NewSourceSelector(repo, logger),
		service.NewImageValidator(repo, storage, imageConverter, limits, logger),
		service.NewMemoryBudgeter(probe, logger),
		service.NewCompositor(storage, imageConverter, v.GetDuration("limits.max_execution"), logger),
		service.NewRecoveryPolicy(probe, v.GetInt64("memory.increment"), logger),
		sinks,
		logger,
	)

	seoFilter := service.NewSEOFilter(configResolver, service.NewImageURLBuilder(v.GetString("server.base_url")), logger)

	if v.GetString("server.mode") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	imageHandler := handler.NewImage(dispatcher, seoFilter, ring, v.GetString("admin.token"))

	srv := &http.Server{
		Addr:              v.GetString("server.addr"),
		Handler:           handler.InitRoutes(imageHandler, v.GetDuration("limits.max_execution")),
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      v.GetDuration("limits.max_execution") + 5*time.Second,
		IdleTimeout:       v.GetDuration("server.idle_timeout"),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), v.GetDuration("server.shutdown_timeout"))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down server")
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.root", "./uploads")

	v.SetDefault("limits.max_file_size", service.DefaultValidationLimits().MaxFileSize)
	v.SetDefault("limits.min_dimension", service.DefaultValidationLimits().MinDimension)
	v.SetDefault("limits.max_dimension", service.DefaultValidationLimits().MaxDimension)
	v.SetDefault("limits.max_execution", service.DefaultMaxExecution.String())

	v.SetDefault("memory.ceiling", memory.DefaultCeiling)
	v.SetDefault("memory.max_ceiling", 2*memory.DefaultCeiling)
	v.SetDefault("memory.increment", service.DefaultMemoryIncrement)
	v.SetDefault("memory.apply_limit", true)

	v.SetDefault("database.path", "./data/ogio.db")

	v.SetDefault("settings.backend", "config")

	v.SetDefault("admin.error_log_size", errorlog.DefaultCapacity)

	v.SetDefault("telegram.timeout", notifier.DefaultSendTimeout.String())
	v.SetDefault("telegram.daily_alert_limit", 20)
}

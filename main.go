package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"podcastrelay/internal/api"
	"podcastrelay/internal/config"
	"podcastrelay/internal/converter"
	"podcastrelay/internal/redis"
	"podcastrelay/internal/service/generation"
	"podcastrelay/internal/service/transcription"
	"podcastrelay/internal/service/upload"
	"podcastrelay/internal/storage"
	"podcastrelay/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatal("load .env", err)
	}

	cfg, err := config.Load(os.Getenv("PODCASTRELAY_CONFIG"))
	if err != nil {
		fatal("load config", err)
	}

	ctx := context.Background()

	dbType := cfg.BasicConfig.DBType
	slog.Info("opening upload registry", "db_type", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		fatal("migrate database", err)
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		fatal("create redis client", err)
	}
	defer rdb.Close()

	uploads, err := upload.NewService(&cfg.Audio, db)
	if err != nil {
		fatal("init upload service", err)
	}

	ffmpeg, err := converter.NewFFmpeg(converter.Options{
		FFmpegPath:      cfg.BasicConfig.FFmpegPath,
		SampleRateHertz: cfg.Audio.SampleRateHertz,
		Channels:        cfg.Audio.Channels,
	})
	if err != nil {
		// only fatal if some rule actually needs it
		if len(cfg.Audio.Conversions) > 0 || len(cfg.Audio.MimeConversions) > 0 {
			fatal("init converter", err)
		}
		slog.Warn("ffmpeg unavailable, conversion disabled", "error", err)
	}
	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:        cfg.BasicConfig.MinWorkers,
		MaxWorkers:        cfg.BasicConfig.MaxWorkers,
		QueueSize:         cfg.BasicConfig.QueueSize,
		WorkerIdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})
	defer dispatcher.Close()
	var conv converter.Converter
	if ffmpeg != nil {
		conv = converter.NewPooled(ffmpeg, dispatcher)
	}

	var recognizer transcription.Recognizer
	switch cfg.BasicConfig.SpeechBackend {
	case config.SpeechBackendWhisper:
		p := cfg.Providers[config.ProviderWhisper]
		recognizer = transcription.NewWhisperRecognizer(p.APIKey, p.BaseURL, p.Model)
	default:
		google, err := transcription.NewGoogleRecognizer(ctx, cfg.Providers[config.ProviderGoogleSpeech].APIKey)
		if err != nil {
			fatal("init speech client", err)
		}
		defer google.Close()
		recognizer = google
	}

	opts := transcription.Options{
		Audio:      &cfg.Audio,
		Backend:    cfg.BasicConfig.SpeechBackend,
		Recognizer: recognizer,
		Converter:  conv,
		Uploads:    uploads,
	}
	if rdb != nil && cfg.BasicConfig.TranscriptTTL > 0 {
		opts.Cache = transcription.NewRedisCache(rdb, time.Duration(cfg.BasicConfig.TranscriptTTL)*time.Minute)
	}
	transcriber, err := transcription.NewService(opts)
	if err != nil {
		fatal("init transcription service", err)
	}

	gemini, err := generation.NewGeminiGenerator(ctx, cfg.Providers[config.ProviderGemini].APIKey)
	if err != nil {
		fatal("init gemini client", err)
	}
	podcasts, err := generation.NewService(cfg.Providers[config.ProviderGemini].Model, gemini)
	if err != nil {
		fatal("init generation service", err)
	}

	handlers := api.NewHandler(uploads, transcriber, podcasts, &cfg.Audio)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Recovery(), api.RequestLogger(), api.CORS(cfg.BasicConfig.CORSOrigins))
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "upload_dir", cfg.Audio.UploadDir, "speech_backend", cfg.BasicConfig.SpeechBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	slog.Info("server exited")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gandalf-gate/internal/chatlog"
	"gandalf-gate/internal/config"
	"gandalf-gate/internal/game"
	"gandalf-gate/internal/levels"
	"gandalf-gate/internal/llm"
	"gandalf-gate/internal/scheduler"
	"gandalf-gate/internal/server"
	"gandalf-gate/internal/session"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Err(err).Msg(".env file not found")
	}

	cfg := config.New()

	registry, err := levels.Load(cfg.LevelsFilePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.LevelsFilePath).Msg("failed to load level configuration")
	}

	store, err := session.NewFileStore(cfg.SessionsFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init session store")
	}

	factory := llm.NewFactory(cfg)
	client, err := factory.CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm client")
	}

	svc := game.NewService(store, registry, client, cfg)

	if cfg.ChatLogFilePath != "" {
		rec, err := chatlog.NewFileRecorder(cfg.ChatLogFilePath)
		if err != nil {
			log.Warn().Err(err).Msg("failed to init chat recorder")
		} else {
			svc.SetRecorder(rec)
		}
	}

	sched := scheduler.New()
	sched.SetBackupFunction(scheduler.BackupSessionsFile(cfg.SessionsFilePath, cfg.BackupDirPath))
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	srv := server.New(svc, log.Logger)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		sched.Stop()
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Int("port", cfg.ServerPort).Msg("gandalf-gate listening")
	if err := srv.Listen(cfg.ServerPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

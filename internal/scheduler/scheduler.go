package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the nightly maintenance jobs.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	backupFunc func(ctx context.Context) error
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetBackupFunction sets the job that snapshots the sessions file.
func (s *Scheduler) SetBackupFunction(f func(ctx context.Context) error) {
	s.backupFunc = f
}

func (s *Scheduler) Start() error {
	if s.backupFunc == nil {
		log.Warn().Msg("backup function not set, scheduler will not run backups")
		return nil
	}

	// Nightly at 03:00 UTC
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		log.Info().Msg("running nightly sessions backup")
		if err := s.backupFunc(s.ctx); err != nil {
			log.Error().Err(err).Msg("nightly sessions backup failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Info().Msg("scheduler started, sessions backup at 03:00 UTC")
	return nil
}

func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}

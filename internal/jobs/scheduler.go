package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"skillquest/api/internal/repository"
)

// Scheduler runs the audit-retention prune. Audit rows are append-only
// during requests, so the prune is the only bulk delete in the system.
type Scheduler struct {
	cron      *cron.Cron
	audit     *repository.AuditRepository
	retention time.Duration
	log       zerolog.Logger
}

func NewScheduler(audit *repository.AuditRepository, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		audit:     audit,
		retention: retention,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.audit == nil || s.retention <= 0 {
		return nil
	}

	if _, err := s.cron.AddFunc("@daily", s.pruneAudit); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running prune to finish, up to 5 seconds.
func (s *Scheduler) Stop() {
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-waitCtx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) pruneAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	removed, err := s.audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("audit prune failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("rows", removed).Time("cutoff", cutoff).Msg("audit rows pruned")
	}
}

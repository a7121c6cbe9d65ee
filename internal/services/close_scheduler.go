package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/utils"
)

// CloseScheduler persists a close job at auction creation and sweeps due
// jobs on a cron tick, invoking CloseAuction as an ordinary caller. Retry
// policy lives here, not in the engine: transient ledger failures keep the
// job pending, partial settlements never re-run.
type CloseScheduler struct {
	cron       *cron.Cron
	repo       domain.CloseJobRepository
	engine     *Engine
	leader     domain.LeaderElection
	instanceID string
	log        logger.Logger
}

type CloseSchedulerOption func(*CloseScheduler)

// WithLeaderElection gates the sweep so only the leading instance settles
// auctions when several share the same ledgers.
func WithLeaderElection(le domain.LeaderElection, instanceID string) CloseSchedulerOption {
	return func(s *CloseScheduler) {
		s.leader = le
		s.instanceID = instanceID
	}
}

func NewCloseScheduler(repo domain.CloseJobRepository, engine *Engine, log logger.Logger, opts ...CloseSchedulerOption) *CloseScheduler {
	s := &CloseScheduler{
		cron:   cron.New(cron.WithSeconds()),
		repo:   repo,
		engine: engine,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CloseScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting close scheduler")

	_, err := s.cron.AddFunc("@every 30s", func() {
		s.processDueJobs(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *CloseScheduler) Stop() error {
	s.log.Info("Stopping close scheduler")
	s.cron.Stop()
	return nil
}

func (s *CloseScheduler) ScheduleClose(ctx context.Context, auctionID string, runAt int64) error {
	return s.repo.CreateJob(ctx, &domain.CloseJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auctionID,
		RunAt:     runAt,
		Status:    domain.JobPending,
		CreatedAt: time.Now().Unix(),
	})
}

func (s *CloseScheduler) processDueJobs(ctx context.Context) {
	if s.leader != nil {
		isLeader, err := s.leader.IsLeader(ctx, s.instanceID)
		if err != nil {
			s.log.Error("Leader check failed", "error", err)
			return
		}
		if !isLeader {
			return
		}
	}

	jobs, err := s.repo.DueJobs(ctx, time.Now().Unix())
	if err != nil {
		s.log.Error("Failed to fetch due close jobs", "error", err)
		return
	}

	for _, job := range jobs {
		s.log.Info("Processing close job", "job_id", job.ID, "auction_id", job.AuctionID)

		_, _, err := s.engine.CloseAuction(ctx, job.AuctionID)
		if err == nil {
			s.markExecuted(ctx, job)
			continue
		}

		var partial *domain.PartialSettlementError
		switch {
		case errors.Is(err, domain.ErrAuctionAlreadyClosed):
			// Someone closed it first; the job is satisfied.
			s.markExecuted(ctx, job)
		case errors.As(err, &partial):
			// The CLOSED transition committed; re-running would risk a
			// double asset transfer. Manual reconciliation required.
			s.log.Error("Close job ended in partial settlement; manual reconciliation required",
				"job_id", job.ID, "auction_id", job.AuctionID, "asset_tx", partial.AssetTxRef)
			s.markExecuted(ctx, job)
		case errors.Is(err, domain.ErrNoValidBids):
			s.log.Warn("Sealed close found no valid bids; auction stays open",
				"job_id", job.ID, "auction_id", job.AuctionID)
			s.markExecuted(ctx, job)
		default:
			// Transient ledger trouble: leave the job pending for the next
			// sweep.
			s.log.Error("Close job failed, will retry", "job_id", job.ID,
				"auction_id", job.AuctionID, "error", err)
		}
	}
}

func (s *CloseScheduler) markExecuted(ctx context.Context, job *domain.CloseJob) {
	if err := s.repo.MarkExecuted(ctx, job.ID); err != nil {
		s.log.Error("Failed to mark close job executed", "job_id", job.ID, "error", err)
	}
}

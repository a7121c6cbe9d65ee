package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/memory"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

type fakeLeader struct {
	leader bool
}

func (f *fakeLeader) BecomeLeader(context.Context, string) (bool, error) { return f.leader, nil }
func (f *fakeLeader) IsLeader(context.Context, string) (bool, error)     { return f.leader, nil }
func (f *fakeLeader) ReleaseLeadership(context.Context, string) error    { return nil }

type schedulerFixture struct {
	*openFixture
	scheduler *CloseScheduler
	jobs      *memory.CloseJobRepository
}

func newSchedulerFixture(opts ...CloseSchedulerOption) *schedulerFixture {
	x := newOpenFixture()
	jobs := memory.NewCloseJobRepository()
	scheduler := NewCloseScheduler(jobs, x.engine, logger.NewNop(), opts...)
	x.engine.SetCloseScheduler(scheduler)
	return &schedulerFixture{openFixture: x, scheduler: scheduler, jobs: jobs}
}

func (x *schedulerFixture) pendingJobs(t *testing.T) []*domain.CloseJob {
	t.Helper()
	due, err := x.jobs.DueJobs(context.Background(), time.Now().Unix())
	require.NoError(t, err)
	return due
}

func TestCreateAuctionSchedulesCloseJob(t *testing.T) {
	x := newSchedulerFixture()

	a := x.createAuction(t)

	due := x.pendingJobs(t)
	require.Len(t, due, 1)
	assert.Equal(t, a.ID, due[0].AuctionID)
	assert.Equal(t, a.EndTime, due[0].RunAt)
}

func TestSweepClosesDueAuction(t *testing.T) {
	x := newSchedulerFixture()
	a := x.createAuction(t)
	x.assets.fund(bidder1, 10000)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	x.assets.now = a.EndTime
	x.scheduler.processDueJobs(context.Background())

	closed, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionClosed, closed.Status)
	assert.Empty(t, x.pendingJobs(t))
}

func TestSweepRetriesTransientFailure(t *testing.T) {
	x := newSchedulerFixture()
	a := x.createAuction(t)
	x.assets.fund(bidder1, 10000)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	x.assets.now = a.EndTime
	x.assets.assetErr = &domain.LedgerError{Ledger: "asset", Op: "transferAsset", Err: errors.New("rpc down")}
	x.scheduler.processDueJobs(context.Background())

	// Still pending, auction still open.
	assert.Len(t, x.pendingJobs(t), 1)
	current, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionOpen, current.Status)

	x.assets.assetErr = nil
	x.scheduler.processDueJobs(context.Background())
	assert.Empty(t, x.pendingJobs(t))
	assert.Len(t, x.assets.assetTransfers, 1)
}

func TestSweepNeverRerunsPartialSettlement(t *testing.T) {
	x := newSchedulerFixture()
	a := x.createAuction(t)
	x.assets.fund(bidder1, 10000)

	_, err := x.engine.PlaceBid(context.Background(), a.ID, bidder1, big.NewInt(1500))
	require.NoError(t, err)

	x.assets.now = a.EndTime
	x.assets.valueErr = errors.New("transfer reverted")
	x.scheduler.processDueJobs(context.Background())

	// Executed despite the error: re-running risks a double asset transfer.
	assert.Empty(t, x.pendingJobs(t))
	assert.Len(t, x.assets.assetTransfers, 1)

	x.scheduler.processDueJobs(context.Background())
	assert.Len(t, x.assets.assetTransfers, 1)
}

func TestSweepManualCloseWinsRace(t *testing.T) {
	x := newSchedulerFixture()
	a := x.createAuction(t)

	x.assets.now = a.EndTime
	_, _, err := x.engine.CloseAuction(context.Background(), a.ID)
	require.NoError(t, err)

	// The job is satisfied by the manual close.
	x.scheduler.processDueJobs(context.Background())
	assert.Empty(t, x.pendingJobs(t))
}

func TestSweepOnlyRunsOnLeader(t *testing.T) {
	le := &fakeLeader{leader: false}
	x := newSchedulerFixture(WithLeaderElection(le, "instance-1"))
	a := x.createAuction(t)

	x.assets.now = a.EndTime
	x.scheduler.processDueJobs(context.Background())

	current, err := x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionOpen, current.Status)
	assert.Len(t, x.pendingJobs(t), 1)

	le.leader = true
	x.scheduler.processDueJobs(context.Background())
	current, err = x.engine.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionClosed, current.Status)
}

package mysql

import (
	"context"
	"database/sql"
	"math/big"
	"time"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/utils"
)

// RecordStore implements the record ledger over two tables. Amounts are
// stored as DECIMAL(65,0) and travel through the driver as strings.
//
//	CREATE TABLE auctions (
//	    id             VARCHAR(64) PRIMARY KEY,
//	    asset_id       VARCHAR(128) NOT NULL,
//	    creator        VARCHAR(128) NOT NULL,
//	    start_time     BIGINT NOT NULL,
//	    end_time       BIGINT NOT NULL,
//	    min_bid        DECIMAL(65,0) NOT NULL,
//	    current_bid    DECIMAL(65,0) NOT NULL DEFAULT 0,
//	    highest_bidder VARCHAR(128) NOT NULL DEFAULT '',
//	    status         VARCHAR(16) NOT NULL,
//	    winner         VARCHAR(128) NOT NULL DEFAULT '',
//	    win_amount     DECIMAL(65,0) NOT NULL DEFAULT 0,
//	    settlement_ref VARCHAR(512) NOT NULL DEFAULT '',
//	    created_at     BIGINT NOT NULL
//	);
//
//	CREATE TABLE bids (
//	    id         VARCHAR(64) PRIMARY KEY,
//	    auction_id VARCHAR(64) NOT NULL,
//	    bidder     VARCHAR(128) NOT NULL,
//	    amount     DECIMAL(65,0) NOT NULL,
//	    bid_time   BIGINT NOT NULL,
//	    INDEX idx_bids_auction (auction_id, bid_time)
//	);
type RecordStore struct {
	db  *sql.DB
	log logger.Logger
}

func NewRecordStore(db *sql.DB, log logger.Logger) *RecordStore {
	return &RecordStore{db: db, log: log}
}

func (s *RecordStore) CreateAuction(ctx context.Context, a *domain.Auction) (string, error) {
	query := `INSERT INTO auctions
		(id, asset_id, creator, start_time, end_time, min_bid, current_bid,
		 highest_bidder, status, winner, win_amount, settlement_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, '', ?, '', 0, '', ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.AssetID, a.Creator, a.StartTime, a.EndTime,
		decimal(a.MinBid), string(a.Status), a.CreatedAt)
	if err != nil {
		return "", wrap("createAuction", err)
	}
	return a.ID, nil
}

func (s *RecordStore) UpdateAuction(ctx context.Context, auctionID string, upd domain.AuctionUpdate) (string, error) {
	query := "UPDATE auctions SET "
	args := []interface{}{}
	first := true
	set := func(col string, v interface{}) {
		if !first {
			query += ", "
		}
		query += col + " = ?"
		args = append(args, v)
		first = false
	}

	if upd.CurrentBid != nil {
		set("current_bid", decimal(upd.CurrentBid))
	}
	if upd.HighestBidder != nil {
		set("highest_bidder", *upd.HighestBidder)
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if upd.SettlementRef != nil {
		set("settlement_ref", *upd.SettlementRef)
	}
	if upd.Winner != nil {
		set("winner", *upd.Winner)
	}
	if upd.WinAmount != nil {
		set("win_amount", decimal(upd.WinAmount))
	}
	if first {
		return auctionID, nil
	}
	query += " WHERE id = ?"
	args = append(args, auctionID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", wrap("updateAuction", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Zero rows is ambiguous with a no-op write; confirm existence.
		if _, getErr := s.GetAuction(ctx, auctionID); getErr != nil {
			return "", getErr
		}
	}
	return auctionID, nil
}

func (s *RecordStore) FinalizeAuction(ctx context.Context, auctionID string, finalPrice *big.Int, winner, settlementRef string) (string, error) {
	query := `UPDATE auctions
		SET status = ?, current_bid = ?, winner = ?, win_amount = ?, settlement_ref = ?
		WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		string(domain.AuctionClosed), decimal(finalPrice), winner,
		decimal(finalPrice), settlementRef, auctionID)
	if err != nil {
		return "", wrap("finalizeAuction", err)
	}
	return auctionID, nil
}

func (s *RecordStore) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT id, asset_id, creator, start_time, end_time, min_bid,
		current_bid, highest_bidder, status, winner, win_amount, settlement_ref, created_at
		FROM auctions WHERE id = ?`

	var (
		a                          domain.Auction
		minBid, currentBid, winAmt string
		status                     string
	)
	err := s.db.QueryRowContext(ctx, query, auctionID).Scan(
		&a.ID, &a.AssetID, &a.Creator, &a.StartTime, &a.EndTime, &minBid,
		&currentBid, &a.HighestBidder, &status, &a.Winner, &winAmt,
		&a.SettlementRef, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAuctionNotFound
	}
	if err != nil {
		return nil, wrap("getAuction", err)
	}

	a.Status = domain.AuctionStatus(status)
	if a.MinBid, err = parseDecimal("min_bid", minBid); err != nil {
		return nil, wrap("getAuction", err)
	}
	if a.CurrentBid, err = parseDecimal("current_bid", currentBid); err != nil {
		return nil, wrap("getAuction", err)
	}
	if a.WinAmount, err = parseDecimal("win_amount", winAmt); err != nil {
		return nil, wrap("getAuction", err)
	}
	return &a, nil
}

func (s *RecordStore) CreateBid(ctx context.Context, b *domain.Bid) (string, error) {
	id := utils.GenerateID("bid")
	query := `INSERT INTO bids (id, auction_id, bidder, amount, bid_time) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, id, b.AuctionID, b.Bidder, decimal(b.Amount), b.Timestamp)
	if err != nil {
		return "", wrap("createBid", err)
	}
	return id, nil
}

func (s *RecordStore) BidsForAuction(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	query := `SELECT auction_id, bidder, amount, bid_time
		FROM bids WHERE auction_id = ? ORDER BY bid_time ASC`

	rows, err := s.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, wrap("bidsForAuction", err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var (
			b      domain.Bid
			amount string
		)
		if err := rows.Scan(&b.AuctionID, &b.Bidder, &amount, &b.Timestamp); err != nil {
			return nil, wrap("bidsForAuction", err)
		}
		if b.Amount, err = parseDecimal("amount", amount); err != nil {
			return nil, wrap("bidsForAuction", err)
		}
		bids = append(bids, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("bidsForAuction", err)
	}
	return bids, nil
}

// CloseJobRepository persists the close sweeper's pending work so a restart
// never drops a scheduled settlement.
//
//	CREATE TABLE close_jobs (
//	    id         VARCHAR(64) PRIMARY KEY,
//	    auction_id VARCHAR(64) NOT NULL,
//	    run_at     BIGINT NOT NULL,
//	    status     VARCHAR(16) NOT NULL DEFAULT 'pending',
//	    created_at BIGINT NOT NULL,
//	    INDEX idx_close_jobs_due (status, run_at)
//	);
type CloseJobRepository struct {
	db *sql.DB
}

func NewCloseJobRepository(db *sql.DB) *CloseJobRepository {
	return &CloseJobRepository{db: db}
}

func (r *CloseJobRepository) CreateJob(ctx context.Context, job *domain.CloseJob) error {
	if job.CreatedAt == 0 {
		job.CreatedAt = time.Now().Unix()
	}
	query := `INSERT INTO close_jobs (id, auction_id, run_at, status, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, job.ID, job.AuctionID, job.RunAt, string(job.Status), job.CreatedAt)
	if err != nil {
		return wrap("createJob", err)
	}
	return nil
}

func (r *CloseJobRepository) DueJobs(ctx context.Context, before int64) ([]*domain.CloseJob, error) {
	query := `SELECT id, auction_id, run_at, status, created_at
		FROM close_jobs WHERE status = ? AND run_at <= ? ORDER BY run_at ASC`

	rows, err := r.db.QueryContext(ctx, query, string(domain.JobPending), before)
	if err != nil {
		return nil, wrap("dueJobs", err)
	}
	defer rows.Close()

	var jobs []*domain.CloseJob
	for rows.Next() {
		var (
			j      domain.CloseJob
			status string
		)
		if err := rows.Scan(&j.ID, &j.AuctionID, &j.RunAt, &status, &j.CreatedAt); err != nil {
			return nil, wrap("dueJobs", err)
		}
		j.Status = domain.JobStatus(status)
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("dueJobs", err)
	}
	return jobs, nil
}

func (r *CloseJobRepository) MarkExecuted(ctx context.Context, jobID string) error {
	query := `UPDATE close_jobs SET status = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, string(domain.JobExecuted), jobID)
	if err != nil {
		return wrap("markExecuted", err)
	}
	return nil
}

func decimal(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func parseDecimal(field, s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &scanError{field: field, value: s}
	}
	return n, nil
}

type scanError struct {
	field string
	value string
}

func (e *scanError) Error() string {
	return "column " + e.field + ": " + e.value + " is not a decimal integer"
}

func wrap(op string, err error) error {
	return &domain.LedgerError{Ledger: "record", Op: op, Err: err}
}

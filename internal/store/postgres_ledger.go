package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const withdrawalColumns = `w.id, w.owner_id, COALESCE(o.telegram_id, 0), COALESCE(o.first_name, ''), w.amount, w.upi_id, w.status, w.requested_at, w.processed_at`

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var status string
	if err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.OwnerTelegram,
		&w.OwnerName,
		&w.Amount,
		&w.UPIID,
		&status,
		&w.RequestedAt,
		&w.ProcessedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, err
	}
	w.Status = domain.WithdrawalStatus(status)
	return &w, nil
}

// CreateWithdrawal debits the owner's wallet and records a pending payout request.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, ownerID uuid.UUID, amount int64, upiID string) (*domain.Withdrawal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		balance  int64
		isBanned bool
	)
	// Use FOR UPDATE to lock the row, preventing two confirmations spending the same balance.
	err = tx.QueryRow(ctx, `SELECT wallet_balance, is_banned FROM owners WHERE id = $1 FOR UPDATE`, ownerID).Scan(&balance, &isBanned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	if isBanned {
		return nil, ErrOwnerBanned
	}
	if amount <= 0 || balance < amount {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE owners SET wallet_balance = wallet_balance - $2 WHERE id = $1`, ownerID, amount); err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}

	w, err := scanWithdrawal(tx.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO withdrawals (id, owner_id, amount, upi_id)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		)
		SELECT `+withdrawalColumns+`
		FROM inserted w
		LEFT JOIN owners o ON o.id = w.owner_id
	`, uuid.New(), ownerID, amount, upiID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *PostgresRepository) withdrawalState(ctx context.Context, q pgx.Tx, id uuid.UUID) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM withdrawals WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWithdrawalNotFound
		}
		return err
	}
	return ErrWithdrawalNotPending
}

// ApproveWithdrawal marks a pending withdrawal as paid out. Balances do not change.
func (r *PostgresRepository) ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := scanWithdrawal(tx.QueryRow(ctx, `
		WITH updated AS (
			UPDATE withdrawals
			SET status = 'approved', processed_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		)
		SELECT `+withdrawalColumns+`
		FROM updated w
		LEFT JOIN owners o ON o.id = w.owner_id
	`, id))
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			return nil, r.withdrawalState(ctx, tx, id)
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// RejectWithdrawal marks a pending withdrawal rejected and refunds the owner's wallet.
func (r *PostgresRepository) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	w, err := scanWithdrawal(tx.QueryRow(ctx, `
		WITH updated AS (
			UPDATE withdrawals
			SET status = 'rejected', processed_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		)
		SELECT `+withdrawalColumns+`
		FROM updated w
		LEFT JOIN owners o ON o.id = w.owner_id
	`, id))
	if err != nil {
		if errors.Is(err, ErrWithdrawalNotFound) {
			return nil, r.withdrawalState(ctx, tx, id)
		}
		return nil, err
	}

	tag, err := tx.Exec(ctx, `UPDATE owners SET wallet_balance = wallet_balance + $2 WHERE id = $1`, w.OwnerID, w.Amount)
	if err != nil {
		return nil, fmt.Errorf("refund wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrOwnerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWithdrawals lists withdrawals, newest first. An empty status lists all.
func (r *PostgresRepository) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit, offset int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals w
		LEFT JOIN owners o ON o.id = w.owner_id
		WHERE ($1 = '' OR w.status = $1)
		ORDER BY w.requested_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	return collectWithdrawals(rows)
}

func (r *PostgresRepository) ListWithdrawalsByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals w
		LEFT JOIN owners o ON o.id = w.owner_id
		WHERE w.owner_id = $1
		ORDER BY w.requested_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	defer rows.Close()
	var out []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// SumApprovedWithdrawals returns the total paid out to an owner.
func (r *PostgresRepository) SumApprovedWithdrawals(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint
		FROM withdrawals
		WHERE owner_id = $1 AND status = 'approved'
	`, ownerID).Scan(&total)
	return total, err
}

const reportColumns = `id, reporter_id, reported_owner_id, reported_channel_id, channel_name, reason, status, created_at, resolved_at`

func scanReport(row pgx.Row) (*domain.Report, error) {
	var (
		rep    domain.Report
		status string
	)
	if err := row.Scan(
		&rep.ID,
		&rep.ReporterID,
		&rep.OwnerID,
		&rep.ChannelRef,
		&rep.ChannelName,
		&rep.Reason,
		&status,
		&rep.CreatedAt,
		&rep.ResolvedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	rep.Status = domain.ReportStatus(status)
	return &rep, nil
}

func (r *PostgresRepository) CreateReport(ctx context.Context, report *domain.Report) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	report.Status = domain.ReportPending
	return r.db.QueryRow(ctx, `
		INSERT INTO reports (id, reporter_id, reported_owner_id, reported_channel_id, channel_name, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, report.ID, report.ReporterID, report.OwnerID, report.ChannelRef, report.ChannelName, report.Reason).Scan(&report.CreatedAt)
}

func (r *PostgresRepository) ListReports(ctx context.Context, status domain.ReportStatus, limit, offset int) ([]domain.Report, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

// ResolveReport marks a pending report resolved.
func (r *PostgresRepository) ResolveReport(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	rep, err := scanReport(r.db.QueryRow(ctx, `
		UPDATE reports
		SET status = 'resolved', resolved_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+reportColumns, id))
	if err == nil {
		return rep, nil
	}
	if !errors.Is(err, ErrReportNotFound) {
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reports WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrReportAlreadyResolved
	}
	return nil, ErrReportNotFound
}

// GetPlatformStats aggregates counts and sums for the admin console.
func (r *PostgresRepository) GetPlatformStats(ctx context.Context) (*domain.PlatformStats, error) {
	var s domain.PlatformStats
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM owners),
			(SELECT COUNT(*) FROM owners WHERE is_banned),
			(SELECT COUNT(*) FROM managed_channels),
			(SELECT COUNT(*) FROM subscribers WHERE expires_at > now()),
			(SELECT COUNT(*) FROM pending_payments WHERE created_at > now() - $1::bigint * interval '1 second'),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COALESCE(SUM(amount_paid), 0)::bigint FROM transactions),
			(SELECT COALESCE(SUM(commission_charged), 0)::bigint FROM transactions),
			(SELECT COALESCE(SUM(amount), 0)::bigint FROM withdrawals WHERE status = 'approved'),
			(SELECT COALESCE(SUM(wallet_balance), 0)::bigint FROM owners),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0)::bigint FROM withdrawals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM reports WHERE status = 'pending')
	`, r.pendingTTLSeconds).Scan(
		&s.Owners,
		&s.BannedOwners,
		&s.Channels,
		&s.ActiveSubscribers,
		&s.PendingPayments,
		&s.Transactions,
		&s.TotalRevenue,
		&s.TotalCommission,
		&s.TotalPaidOut,
		&s.PendingPayouts,
		&s.PendingWithdrawals,
		&s.PendingWithdrawalTotal,
		&s.OpenReports,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

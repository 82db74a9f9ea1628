/**
 * @description
 * PostgreSQL implementation of the Repository interface: owners and channels.
 * Pending intents, settlement and ledger queries live in the sibling files.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HashGen/MonetizeGram/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
	// pendingTTLSeconds is the single retention window for pending intents.
	pendingTTLSeconds int64
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool, pendingTTL time.Duration) *PostgresRepository {
	ttl := int64(pendingTTL / time.Second)
	if ttl <= 0 {
		ttl = int64((2 * time.Hour) / time.Second)
	}
	return &PostgresRepository{db: db, pendingTTLSeconds: ttl}
}

func isUniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr, true
	}
	return nil, false
}

const ownerColumns = `id, telegram_id, username, first_name, wallet_balance, total_earnings, is_banned, banned_at, created_at`

func scanOwner(row pgx.Row) (*domain.Owner, error) {
	var o domain.Owner
	if err := row.Scan(
		&o.ID,
		&o.TelegramID,
		&o.Username,
		&o.FirstName,
		&o.WalletBalance,
		&o.TotalEarnings,
		&o.IsBanned,
		&o.BannedAt,
		&o.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return &o, nil
}

// GetOrCreateOwner returns the owner for a Telegram user, creating it on first contact.
func (r *PostgresRepository) GetOrCreateOwner(ctx context.Context, telegramID int64, username, firstName string) (*domain.Owner, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO owners (telegram_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO NOTHING
	`, telegramID, strings.TrimSpace(username), strings.TrimSpace(firstName))
	if err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}
	return r.GetOwnerByTelegramID(ctx, telegramID)
}

func (r *PostgresRepository) GetOwnerByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	return scanOwner(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id))
}

func (r *PostgresRepository) GetOwnerByTelegramID(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	return scanOwner(r.db.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE telegram_id = $1`, telegramID))
}

// ListOwners returns owners, most recent first.
func (r *PostgresRepository) ListOwners(ctx context.Context, limit, offset int) ([]domain.Owner, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ownerColumns+`
		FROM owners
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []domain.Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		owners = append(owners, *o)
	}
	return owners, rows.Err()
}

// BanOwner marks the owner banned and cascade-deletes their channels in one
// transaction. The wallet is left untouched.
func (r *PostgresRepository) BanOwner(ctx context.Context, id uuid.UUID) (*domain.Owner, []domain.ManagedChannel, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	owner, err := scanOwner(tx.QueryRow(ctx, `
		UPDATE owners
		SET is_banned = TRUE, banned_at = COALESCE(banned_at, now())
		WHERE id = $1
		RETURNING `+ownerColumns, id))
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, `DELETE FROM managed_channels WHERE owner_id = $1 RETURNING `+channelColumns, id)
	if err != nil {
		return nil, nil, err
	}
	channels, err := collectChannels(rows)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return owner, channels, nil
}

// UnbanOwner clears the ban flag of the owner with the given Telegram id.
func (r *PostgresRepository) UnbanOwner(ctx context.Context, telegramID int64) (*domain.Owner, error) {
	return scanOwner(r.db.QueryRow(ctx, `
		UPDATE owners
		SET is_banned = FALSE, banned_at = NULL
		WHERE telegram_id = $1
		RETURNING `+ownerColumns, telegramID))
}

// PurgeBannedOwners hard-deletes owners banned at or before the cutoff.
func (r *PostgresRepository) PurgeBannedOwners(ctx context.Context, bannedBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM owners WHERE is_banned AND banned_at <= $1`, bannedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const channelColumns = `id, owner_id, channel_id, channel_name, unique_start_key, plans, created_at`

func scanChannel(row pgx.Row) (*domain.ManagedChannel, error) {
	var (
		c     domain.ManagedChannel
		plans []byte
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.ChannelID, &c.ChannelName, &c.StartKey, &plans, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	if err := decodePlans(plans, &c.Plans); err != nil {
		return nil, fmt.Errorf("decode plans for channel %s: %w", c.ID, err)
	}
	return &c, nil
}

func decodePlans(raw []byte, plans *[]domain.Plan) error {
	if len(raw) == 0 {
		*plans = nil
		return nil
	}
	return json.Unmarshal(raw, plans)
}

func collectChannels(rows pgx.Rows) ([]domain.ManagedChannel, error) {
	defer rows.Close()
	var channels []domain.ManagedChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *c)
	}
	return channels, rows.Err()
}

// CreateChannel inserts a managed channel. Channel ids and start keys are each unique.
func (r *PostgresRepository) CreateChannel(ctx context.Context, channel *domain.ManagedChannel) error {
	plans, err := json.Marshal(channel.Plans)
	if err != nil {
		return err
	}
	if channel.ID == uuid.Nil {
		channel.ID = uuid.New()
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO managed_channels (id, owner_id, channel_id, channel_name, unique_start_key, plans)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING created_at
	`, channel.ID, channel.OwnerID, channel.ChannelID, channel.ChannelName, channel.StartKey, string(plans)).Scan(&channel.CreatedAt)
	if err != nil {
		if pgErr, ok := isUniqueViolation(err); ok {
			if strings.Contains(pgErr.ConstraintName, "start_key") {
				return ErrDuplicateStartKey
			}
			return ErrDuplicateChannel
		}
		return err
	}
	return nil
}

func (r *PostgresRepository) GetChannelByID(ctx context.Context, id uuid.UUID) (*domain.ManagedChannel, error) {
	return scanChannel(r.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM managed_channels WHERE id = $1`, id))
}

func (r *PostgresRepository) GetChannelByStartKey(ctx context.Context, startKey string) (*domain.ManagedChannel, error) {
	return scanChannel(r.db.QueryRow(ctx, `SELECT `+channelColumns+` FROM managed_channels WHERE unique_start_key = $1`, startKey))
}

func (r *PostgresRepository) ListChannelsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.ManagedChannel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+channelColumns+`
		FROM managed_channels
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectChannels(rows)
}

func (r *PostgresRepository) ListChannels(ctx context.Context, limit, offset int) ([]domain.ManagedChannel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+channelColumns+`
		FROM managed_channels
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectChannels(rows)
}

// UpdateChannelPlans replaces the plan list of a channel owned by ownerID.
func (r *PostgresRepository) UpdateChannelPlans(ctx context.Context, id, ownerID uuid.UUID, plans []domain.Plan) error {
	payload, err := json.Marshal(plans)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE managed_channels SET plans = $3::jsonb WHERE id = $1 AND owner_id = $2`, id, ownerID, string(payload))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

// DeleteChannel removes a channel from the platform. Existing subscribers keep access
// until they expire.
func (r *PostgresRepository) DeleteChannel(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM managed_channels WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChannelNotFound
	}
	return nil
}

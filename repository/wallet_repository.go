package repository

import (
	"context"
	"fmt"

	"bety/database"
	"bety/models"
	"bety/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the read-side queries behind the wallet
// projection. It owns no tables; everything is derived from bets and
// participations on demand.
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

// newWalletRepositoryWithTx creates a new wallet repository with a transaction
func newWalletRepositoryWithTx(tx queryable) service.WalletRepository {
	return &WalletRepository{q: tx}
}

// ClientEntries returns a player's participations joined with bet titles.
// Amounts are signed in SQL: positive when WON, negative when LOST, zero
// while PENDING.
func (r *WalletRepository) ClientEntries(ctx context.Context, playerID uuid.UUID) ([]*models.WalletEntry, error) {
	query := `
		SELECT p.bet_id, b.title,
		       CASE p.status
		           WHEN 'WON' THEN p.amount
		           WHEN 'LOST' THEN -p.amount
		           ELSE 0
		       END AS signed_amount,
		       p.status, p.created_at
		FROM bets_participations p
		JOIN bets b ON b.id = p.bet_id
		WHERE p.player_id = $1
		ORDER BY p.created_at DESC
	`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client wallet entries for %s: %w", playerID, err)
	}
	defer rows.Close()

	return collectWalletEntries(rows)
}

// AdminEntries returns the stored commission of every bet the administrator
// created. Commissions count as earned regardless of bet status, matching
// the admin wallet view.
func (r *WalletRepository) AdminEntries(ctx context.Context, adminID uuid.UUID) ([]*models.WalletEntry, error) {
	query := `
		SELECT b.id, b.title, b.commission,
		       CASE b.status WHEN 'CLOSED' THEN 'WON' ELSE 'PENDING' END,
		       b.created_at
		FROM bets b
		WHERE b.created_by = $1
		ORDER BY b.created_at DESC
	`

	rows, err := r.q.Query(ctx, query, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin wallet entries for %s: %w", adminID, err)
	}
	defer rows.Close()

	return collectWalletEntries(rows)
}

func collectWalletEntries(rows pgx.Rows) ([]*models.WalletEntry, error) {
	var entries []*models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(&e.BetID, &e.BetTitle, &e.Amount, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet entries: %w", err)
	}

	return entries, nil
}

package repository

import (
	"context"
	"fmt"

	"bety/database"
	"bety/service"

	"github.com/google/uuid"
)

// FavoriteRepository implements favorite marker data access. The counter
// updates are server-side arithmetic, never a read-modify-write from the
// client, so concurrent toggles cannot under-count.
type FavoriteRepository struct {
	q queryable
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *database.DB) *FavoriteRepository {
	return &FavoriteRepository{q: db.Pool}
}

// newFavoriteRepositoryWithTx creates a new favorite repository with a transaction
func newFavoriteRepositoryWithTx(tx queryable) service.FavoriteRepository {
	return &FavoriteRepository{q: tx}
}

// Insert adds the marker row; returns false when it already existed.
func (r *FavoriteRepository) Insert(ctx context.Context, betID, userID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO bet_favorites (bet_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (bet_id, user_id) DO NOTHING
	`

	result, err := r.q.Exec(ctx, query, betID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to insert favorite: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Delete removes the marker row; returns false when it was absent.
func (r *FavoriteRepository) Delete(ctx context.Context, betID, userID uuid.UUID) (bool, error) {
	result, err := r.q.Exec(ctx,
		`DELETE FROM bet_favorites WHERE bet_id = $1 AND user_id = $2`, betID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// IncrementCount bumps the bet's denormalized counter and returns the new
// value.
func (r *FavoriteRepository) IncrementCount(ctx context.Context, betID uuid.UUID) (int, error) {
	query := `
		UPDATE bets
		SET favorites_count = favorites_count + 1
		WHERE id = $1
		RETURNING favorites_count
	`

	var count int
	if err := r.q.QueryRow(ctx, query, betID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment favorites count for bet %s: %w", betID, err)
	}

	return count, nil
}

// DecrementCount lowers the counter, guarded so it never goes negative, and
// returns the new value.
func (r *FavoriteRepository) DecrementCount(ctx context.Context, betID uuid.UUID) (int, error) {
	query := `
		UPDATE bets
		SET favorites_count = GREATEST(favorites_count - 1, 0)
		WHERE id = $1
		RETURNING favorites_count
	`

	var count int
	if err := r.q.QueryRow(ctx, query, betID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to decrement favorites count for bet %s: %w", betID, err)
	}

	return count, nil
}

// ListBetIDsByUser returns the bets the user currently favorites
func (r *FavoriteRepository) ListBetIDsByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx,
		`SELECT bet_id FROM bet_favorites WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites for user %s: %w", userID, err)
	}
	defer rows.Close()

	var betIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		betIDs = append(betIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}

	return betIDs, nil
}

// CountRows returns the number of favorite rows for a bet. The denormalized
// counter on the bet must always agree with this.
func (r *FavoriteRepository) CountRows(ctx context.Context, betID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM bet_favorites WHERE bet_id = $1`, betID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites for bet %s: %w", betID, err)
	}

	return count, nil
}

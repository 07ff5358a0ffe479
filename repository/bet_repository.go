package repository

import (
	"context"
	"fmt"
	"time"

	"bety/database"
	"bety/models"
	"bety/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BetRepository implements bet and participation data access
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) service.BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, title, description, image_url, cost, commission, status, created_by, winner_id, favorites_count, created_at, ends_at, closed_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Description,
		&b.ImageURL,
		&b.Cost,
		&b.Commission,
		&b.Status,
		&b.CreatedBy,
		&b.WinnerID,
		&b.FavoritesCount,
		&b.CreatedAt,
		&b.EndsAt,
		&b.ClosedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new bet with status ACTIVE and a zero favorites count
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (title, description, image_url, cost, commission, status, created_by, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, favorites_count, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.Title,
		bet.Description,
		bet.ImageURL,
		bet.Cost,
		bet.Commission,
		bet.Status,
		bet.CreatedBy,
		bet.EndsAt,
	).Scan(&bet.ID, &bet.FavoritesCount, &bet.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	return nil
}

// GetByID retrieves a bet by id, returning nil when absent
func (r *BetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get bet %s: %w", id, err)
	}
	return bet, nil
}

// GetDetailByID retrieves a bet with all of its participations
func (r *BetRepository) GetDetailByID(ctx context.Context, id uuid.UUID) (*models.BetDetail, error) {
	bet, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return nil, nil
	}

	participations, err := r.ListParticipationsByBet(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.BetDetail{Bet: bet, Participations: participations}, nil
}

// List returns all bets newest first, denormalized favorites count included
func (r *BetRepository) List(ctx context.Context) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	return collectBets(rows)
}

func collectBets(rows pgx.Rows) ([]*models.Bet, error) {
	var bets []*models.Bet
	for rows.Next() {
		var b models.Bet
		err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Description,
			&b.ImageURL,
			&b.Cost,
			&b.Commission,
			&b.Status,
			&b.CreatedBy,
			&b.WinnerID,
			&b.FavoritesCount,
			&b.CreatedAt,
			&b.EndsAt,
			&b.ClosedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}

// Update persists the editable bet fields. Participation amounts are frozen
// at join time and are deliberately not touched here.
func (r *BetRepository) Update(ctx context.Context, bet *models.Bet) error {
	query := `
		UPDATE bets
		SET title = $1, description = $2, image_url = $3, cost = $4, commission = $5, ends_at = $6
		WHERE id = $7
	`

	result, err := r.q.Exec(ctx, query,
		bet.Title,
		bet.Description,
		bet.ImageURL,
		bet.Cost,
		bet.Commission,
		bet.EndsAt,
		bet.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update bet %s: %w", bet.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %s not found", bet.ID)
	}

	return nil
}

// Delete removes a bet. Participations and favorites cascade at the schema
// level.
func (r *BetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM bets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bet %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %s not found", id)
	}

	return nil
}

// MarkClosed flips an ACTIVE bet to CLOSED, recording the winner on the bet
// row so an interrupted settlement can be resumed idempotently. Returns
// false when the bet was not ACTIVE.
func (r *BetRepository) MarkClosed(ctx context.Context, betID uuid.UUID, winnerID *uuid.UUID, closedAt time.Time) (bool, error) {
	query := `
		UPDATE bets
		SET status = $1, winner_id = $2, closed_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.q.Exec(ctx, query, models.BetStatusClosed, winnerID, closedAt, betID, models.BetStatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to close bet %s: %w", betID, err)
	}

	return result.RowsAffected() == 1, nil
}

// CreateParticipation inserts a participation. The unique constraint on
// (bet_id, player_id) backs the duplicate-join guard under concurrency.
func (r *BetRepository) CreateParticipation(ctx context.Context, p *models.Participation) error {
	query := `
		INSERT INTO bets_participations (bet_id, player_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, p.BetID, p.PlayerID, p.Amount, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if isUniqueViolation(err, "bets_participations_bet_player_unique") {
		return service.ErrAlreadyJoined
	}
	if err != nil {
		return fmt.Errorf("failed to create participation for bet %s: %w", p.BetID, err)
	}

	return nil
}

const participationColumns = `id, bet_id, player_id, amount, status, created_at, updated_at`

// GetParticipation retrieves one participation, nil when absent
func (r *BetRepository) GetParticipation(ctx context.Context, betID, playerID uuid.UUID) (*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM bets_participations WHERE bet_id = $1 AND player_id = $2`

	var p models.Participation
	err := r.q.QueryRow(ctx, query, betID, playerID).Scan(
		&p.ID,
		&p.BetID,
		&p.PlayerID,
		&p.Amount,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}

	return &p, nil
}

// ListParticipationsByBet returns all participations for a bet
func (r *BetRepository) ListParticipationsByBet(ctx context.Context, betID uuid.UUID) ([]*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM bets_participations WHERE bet_id = $1 ORDER BY created_at`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations for bet %s: %w", betID, err)
	}
	defer rows.Close()

	return collectParticipations(rows)
}

// ListParticipationsByPlayer returns all participations for a player
func (r *BetRepository) ListParticipationsByPlayer(ctx context.Context, playerID uuid.UUID) ([]*models.Participation, error) {
	query := `SELECT ` + participationColumns + ` FROM bets_participations WHERE player_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations for player %s: %w", playerID, err)
	}
	defer rows.Close()

	return collectParticipations(rows)
}

func collectParticipations(rows pgx.Rows) ([]*models.Participation, error) {
	var participations []*models.Participation
	for rows.Next() {
		var p models.Participation
		err := rows.Scan(
			&p.ID,
			&p.BetID,
			&p.PlayerID,
			&p.Amount,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participations: %w", err)
	}

	return participations, nil
}

// SettleParticipations resolves every PENDING participation of a bet in a
// single statement: WON for the winner, LOST for everyone else. Running it
// again after a partial settlement only touches rows still PENDING, which
// is what makes settlement repair idempotent.
func (r *BetRepository) SettleParticipations(ctx context.Context, betID, winnerID uuid.UUID) (int64, error) {
	query := `
		UPDATE bets_participations
		SET status = CASE WHEN player_id = $2 THEN 'WON' ELSE 'LOST' END,
		    updated_at = NOW()
		WHERE bet_id = $1 AND status = 'PENDING'
	`

	result, err := r.q.Exec(ctx, query, betID, winnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to settle participations for bet %s: %w", betID, err)
	}

	return result.RowsAffected(), nil
}

// ListUnsettled returns CLOSED bets that still have PENDING participations.
// A non-empty result means a settlement was interrupted and needs repair.
func (r *BetRepository) ListUnsettled(ctx context.Context) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets b
		WHERE b.status = 'CLOSED'
		  AND EXISTS (
			SELECT 1 FROM bets_participations p
			WHERE p.bet_id = b.id AND p.status = 'PENDING'
		  )
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled bets: %w", err)
	}
	defer rows.Close()

	return collectBets(rows)
}

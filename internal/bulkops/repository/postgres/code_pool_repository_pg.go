package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agrovane/golang_services/internal/bulkops/domain"
)

// availablePredicate is the fixed definition of an available redemption code:
// never redeemed, not yet handed to a recipient, not held by an in-flight
// reservation, and not past its expiry.
const availablePredicate = `
	is_used = FALSE
	AND assigned_to_user_id IS NULL
	AND reserved_until IS NULL
	AND expiry_date > NOW()`

type PgCodePoolRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewPgCodePoolRepository(db DBPool, logger *slog.Logger) *PgCodePoolRepository {
	return &PgCodePoolRepository{db: db, logger: logger}
}

func (r *PgCodePoolRepository) CountAvailable(ctx context.Context, q domain.AvailableCodesQuery) (int, error) {
	var query strings.Builder
	query.WriteString(`SELECT COUNT(*) FROM sponsorship_codes WHERE sponsor_id = $1 AND ` + availablePredicate)

	args := []interface{}{q.SponsorID}
	if q.Tier != "" {
		query.WriteString(fmt.Sprintf(" AND package_tier = $%d", len(args)+1))
		args = append(args, q.Tier)
	}
	if q.PurchaseID.Valid {
		query.WriteString(fmt.Sprintf(" AND purchase_id = $%d", len(args)+1))
		args = append(args, q.PurchaseID.UUID)
	}

	var count int
	if err := r.db.QueryRow(ctx, query.String(), args...).Scan(&count); err != nil {
		r.logger.ErrorContext(ctx, "Error counting available codes",
			"error", err, "sponsor_id", q.SponsorID, "tier", q.Tier)
		return 0, err
	}
	return count, nil
}

func (r *PgCodePoolRepository) FindLatestPurchaseWithAvailableCodes(ctx context.Context, sponsorID uuid.UUID) (*domain.PurchaseRef, error) {
	query := `
		SELECT p.id, p.purchase_date, COUNT(c.id) AS available_codes
		FROM sponsorship_purchases p
		JOIN sponsorship_codes c ON c.purchase_id = p.id AND ` + availablePredicate + `
		WHERE p.sponsor_id = $1 AND p.payment_status = 'Completed'
		GROUP BY p.id, p.purchase_date
		HAVING COUNT(c.id) > 0
		ORDER BY p.purchase_date DESC
		LIMIT 1
	`
	ref := &domain.PurchaseRef{}
	err := r.db.QueryRow(ctx, query, sponsorID).Scan(&ref.ID, &ref.PurchaseDate, &ref.AvailableCodes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.InfoContext(ctx, "No completed purchase with available codes", "sponsor_id", sponsorID)
			return nil, domain.ErrNoPurchaseAvailable
		}
		r.logger.ErrorContext(ctx, "Error finding latest purchase with available codes",
			"error", err, "sponsor_id", sponsorID)
		return nil, err
	}
	return ref, nil
}

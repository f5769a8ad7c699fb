package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/licitaciones-service/internal/admission"
	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// activeBidIndex - частичный уникальный индекс (tender_id, supplier_id) WHERE NOT is_deleted.
const activeBidIndex = "bids_active_tender_supplier_key"

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.Bid, admit func(c admission.Candidate) error) error
	GetBid(ctx context.Context, bidId string) (*models.Bid, error)
	GetBids(ctx context.Context, filter models.BidFilter) ([]models.Bid, error)
	UpdateBid(ctx context.Context, bidId string, mutate func(b *models.Bid, t *models.Tender) error) (*models.Bid, error)
	DeleteBid(ctx context.Context, bidId string) error
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, tender_id, supplier_id, submitted_at, status, offered_budget, delivery_date, description,
	final_score, is_deleted, updated_at`

// CreateBid читает тендер, поставщика и действующее предложение пары в транзакции,
// передает их в admit и при успехе сохраняет предложение.
// Гонку двух одновременных подач закрывает уникальный индекс.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid, admit func(c admission.Candidate) error) error {
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		c := admission.Candidate{TenderID: bid.TenderID, SupplierID: bid.SupplierID}

		tender, err := lockTender(ctx, tx, bid.TenderID, "FOR SHARE")
		if err != nil {
			return err
		}
		c.Tender = tender

		c.Supplier, err = getSupplier(ctx, tx, bid.SupplierID)
		if err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			SELECT id FROM bids WHERE tender_id = $1 AND supplier_id = $2 AND NOT is_deleted`,
			bid.TenderID, bid.SupplierID).Scan(&c.ActiveBidID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if err := admit(c); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO bids (`+bidColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			bid.ID,
			bid.TenderID,
			bid.SupplierID,
			bid.SubmittedAt,
			bid.Status,
			bid.OfferedBudget,
			bid.DeliveryDate,
			bid.Description,
			bid.FinalScore,
			bid.IsDeleted,
			bid.UpdatedAt)
		if err != nil {
			return err
		}
		return insertResponses(ctx, tx, bid.ID, bid.Responses)
	})
	if isUniqueViolation(err, activeBidIndex) {
		return models.NewConflictError("supplier %s already has an active bid for tender %s", bid.SupplierID, bid.TenderID)
	}
	return err
}

// GetBid возвращает неудаленное предложение с ответами.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	bid, err := scanBid(r.DB.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE id = $1 AND NOT is_deleted`, bidId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("bid", bidId)
		}
		return nil, err
	}
	if err := attachResponses(ctx, r.DB, []*models.Bid{bid}); err != nil {
		return nil, err
	}
	return bid, nil
}

// GetBids возвращает список предложений по тендеру или поставщику.
func (r *PostgresBidRepository) GetBids(ctx context.Context, filter models.BidFilter) ([]models.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids`
	filters := []string{"NOT is_deleted"}
	var args []interface{}
	argIndex := 1

	if filter.TenderID != "" {
		filters = append(filters, fmt.Sprintf("tender_id = $%d", argIndex))
		args = append(args, filter.TenderID)
		argIndex++
	}

	if filter.SupplierID != "" {
		filters = append(filters, fmt.Sprintf("supplier_id = $%d", argIndex))
		args = append(args, filter.SupplierID)
		argIndex++
	}

	query += " WHERE " + strings.Join(filters, " AND ")
	query += fmt.Sprintf(" ORDER BY submitted_at, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachResponses(ctx, r.DB, bids); err != nil {
		return nil, err
	}
	result := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		result = append(result, *b)
	}
	return result, nil
}

// UpdateBid блокирует предложение и его тендер, применяет mutate и сохраняет результат.
func (r *PostgresBidRepository) UpdateBid(ctx context.Context, bidId string, mutate func(b *models.Bid, t *models.Tender) error) (*models.Bid, error) {
	var updated *models.Bid
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		bid, err := scanBid(tx.QueryRow(ctx,
			`SELECT `+bidColumns+` FROM bids WHERE id = $1 AND NOT is_deleted FOR UPDATE`, bidId))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.NewNotFoundError("bid", bidId)
			}
			return err
		}
		if err := attachResponses(ctx, tx, []*models.Bid{bid}); err != nil {
			return err
		}

		tender, err := lockTender(ctx, tx, bid.TenderID, "FOR SHARE")
		if err != nil {
			return err
		}
		if tender == nil || tender.IsDeleted {
			return models.NewNotFoundError("tender", bid.TenderID)
		}

		if err := mutate(bid, tender); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE bids SET status = $2, offered_budget = $3, delivery_date = $4, description = $5,
				final_score = $6, updated_at = $7
			WHERE id = $1`,
			bid.ID,
			bid.Status,
			bid.OfferedBudget,
			bid.DeliveryDate,
			bid.Description,
			bid.FinalScore,
			bid.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update bid: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM bid_responses WHERE bid_id = $1`, bid.ID); err != nil {
			return fmt.Errorf("failed to replace responses: %w", err)
		}
		if err := insertResponses(ctx, tx, bid.ID, bid.Responses); err != nil {
			return err
		}
		updated = bid
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBid помечает предложение удаленным, освобождая пару тендер-поставщик.
func (r *PostgresBidRepository) DeleteBid(ctx context.Context, bidId string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE bids SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT is_deleted`, bidId)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("bid", bidId)
	}
	return nil
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	var score decimal.NullDecimal
	if err := row.Scan(
		&b.ID,
		&b.TenderID,
		&b.SupplierID,
		&b.SubmittedAt,
		&b.Status,
		&b.OfferedBudget,
		&b.DeliveryDate,
		&b.Description,
		&score,
		&b.IsDeleted,
		&b.UpdatedAt); err != nil {
		return nil, err
	}
	if score.Valid {
		b.FinalScore = &score.Decimal
	}
	return &b, nil
}

func attachResponses(ctx context.Context, q querier, bids []*models.Bid) error {
	if len(bids) == 0 {
		return nil
	}
	ids := make([]string, 0, len(bids))
	byID := make(map[string]*models.Bid, len(bids))
	for _, b := range bids {
		ids = append(ids, b.ID)
		byID[b.ID] = b
		b.Responses = []models.BidResponse{}
	}

	rows, err := q.Query(ctx, `
		SELECT r.bid_id, r.criterion_id, r.value
		FROM bid_responses r
		JOIN tender_criteria c ON c.id = r.criterion_id
		WHERE r.bid_id = ANY($1)
		ORDER BY r.bid_id, c.position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load responses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bidID string
		var resp models.BidResponse
		if err := rows.Scan(&bidID, &resp.CriterionID, &resp.Value); err != nil {
			return err
		}
		if b, ok := byID[bidID]; ok {
			b.Responses = append(b.Responses, resp)
		}
	}
	return rows.Err()
}

func insertResponses(ctx context.Context, q querier, bidId string, responses []models.BidResponse) error {
	for _, resp := range responses {
		_, err := q.Exec(ctx, `INSERT INTO bid_responses (bid_id, criterion_id, value) VALUES ($1, $2, $3)`,
			bidId, resp.CriterionID, resp.Value)
		if err != nil {
			return fmt.Errorf("failed to insert response: %w", err)
		}
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	CreateTender(ctx context.Context, tender *models.Tender) error
	GetTender(ctx context.Context, tenderId string) (*models.Tender, error)
	GetTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error)
	UpdateTender(ctx context.Context, tenderId string, mutate func(t *models.Tender) error) (*models.Tender, error)
	DeleteTender(ctx context.Context, tenderId string) error
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderColumns = `id, title, description, start_at, close_at, estimated_budget, company_id, project_id,
	category_id, currency_id, status, is_deleted, created_at`

// CreateTender сохраняет тендер вместе с критериями в одной транзакции.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tender *models.Tender) error {
	return pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenders (`+tenderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			tender.ID,
			tender.Title,
			tender.Description,
			tender.StartAt,
			tender.CloseAt,
			tender.EstimatedBudget,
			tender.CompanyID,
			tender.ProjectID,
			tender.CategoryID,
			tender.CurrencyID,
			tender.Status,
			tender.IsDeleted,
			tender.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert tender: %w", err)
		}
		return insertCriteria(ctx, tx, tender.Criteria)
	})
}

// GetTender возвращает неудаленный тендер с критериями.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	tender, err := scanTender(r.DB.QueryRow(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE id = $1 AND NOT is_deleted`, tenderId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NewNotFoundError("tender", tenderId)
		}
		return nil, err
	}
	if err := attachCriteria(ctx, r.DB, []*models.Tender{tender}); err != nil {
		return nil, err
	}
	return tender, nil
}

// GetTenders возвращает список тендеров.
func (r *PostgresTenderRepository) GetTenders(ctx context.Context, filter models.TenderFilter) ([]models.Tender, error) {
	query := `SELECT ` + tenderColumns + ` FROM tenders`
	filters := []string{"NOT is_deleted"}
	var args []interface{}
	argIndex := 1

	if filter.CompanyID != "" {
		filters = append(filters, fmt.Sprintf("company_id = $%d", argIndex))
		args = append(args, filter.CompanyID)
		argIndex++
	}

	if len(filter.Statuses) > 0 {
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(filter.Statuses))
		argIndex++
	}

	query += " WHERE " + strings.Join(filters, " AND ")
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []*models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, tender)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachCriteria(ctx, r.DB, tenders); err != nil {
		return nil, err
	}
	result := make([]models.Tender, 0, len(tenders))
	for _, t := range tenders {
		result = append(result, *t)
	}
	return result, nil
}

// UpdateTender блокирует строку тендера, применяет mutate и сохраняет результат.
// Если mutate вернул ошибку, транзакция откатывается.
func (r *PostgresTenderRepository) UpdateTender(ctx context.Context, tenderId string, mutate func(t *models.Tender) error) (*models.Tender, error) {
	var updated *models.Tender
	err := pgx.BeginFunc(ctx, r.DB, func(tx pgx.Tx) error {
		current, err := lockTender(ctx, tx, tenderId, "FOR UPDATE")
		if err != nil {
			return err
		}
		if current == nil || current.IsDeleted {
			return models.NewNotFoundError("tender", tenderId)
		}
		before := append([]models.Criterion(nil), current.Criteria...)

		if err := mutate(current); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE tenders SET title = $2, description = $3, start_at = $4, close_at = $5, estimated_budget = $6,
				project_id = $7, category_id = $8, currency_id = $9, status = $10
			WHERE id = $1`,
			current.ID,
			current.Title,
			current.Description,
			current.StartAt,
			current.CloseAt,
			current.EstimatedBudget,
			current.ProjectID,
			current.CategoryID,
			current.CurrencyID,
			current.Status)
		if err != nil {
			return fmt.Errorf("failed to update tender: %w", err)
		}

		if err := syncCriteria(ctx, tx, current.ID, before, current.Criteria); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTender помечает тендер удаленным.
func (r *PostgresTenderRepository) DeleteTender(ctx context.Context, tenderId string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE tenders SET is_deleted = TRUE WHERE id = $1 AND NOT is_deleted`, tenderId)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("tender", tenderId)
	}
	return nil
}

// lockTender читает тендер (включая удаленные) с блокировкой строки.
// Возвращает nil, если тендера нет.
func lockTender(ctx context.Context, q querier, tenderId, lock string) (*models.Tender, error) {
	tender, err := scanTender(q.QueryRow(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE id = $1 `+lock, tenderId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if tender.IsDeleted {
		return tender, nil
	}
	if err := attachCriteria(ctx, q, []*models.Tender{tender}); err != nil {
		return nil, err
	}
	return tender, nil
}

func scanTender(row pgx.Row) (*models.Tender, error) {
	var t models.Tender
	var budget decimal.NullDecimal
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.StartAt,
		&t.CloseAt,
		&budget,
		&t.CompanyID,
		&t.ProjectID,
		&t.CategoryID,
		&t.CurrencyID,
		&t.Status,
		&t.IsDeleted,
		&t.CreatedAt); err != nil {
		return nil, err
	}
	if budget.Valid {
		t.EstimatedBudget = &budget.Decimal
	}
	return &t, nil
}

// attachCriteria загружает критерии для набора тендеров одним запросом.
func attachCriteria(ctx context.Context, q querier, tenders []*models.Tender) error {
	if len(tenders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tenders))
	byID := make(map[string]*models.Tender, len(tenders))
	for _, t := range tenders {
		ids = append(ids, t.ID)
		byID[t.ID] = t
		t.Criteria = []models.Criterion{}
	}

	rows, err := q.Query(ctx, `
		SELECT id, tender_id, name, description, weight, higher_is_better, scoring_mode, position
		FROM tender_criteria
		WHERE tender_id = ANY($1)
		ORDER BY tender_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load criteria: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Criterion
		if err := rows.Scan(
			&c.ID,
			&c.TenderID,
			&c.Name,
			&c.Description,
			&c.Weight,
			&c.HigherIsBetter,
			&c.Mode,
			&c.Position); err != nil {
			return err
		}
		if t, ok := byID[c.TenderID]; ok {
			t.Criteria = append(t.Criteria, c)
		}
	}
	return rows.Err()
}

func insertCriteria(ctx context.Context, q querier, criteria []models.Criterion) error {
	for _, c := range criteria {
		_, err := q.Exec(ctx, `
			INSERT INTO tender_criteria (id, tender_id, name, description, weight, higher_is_better, scoring_mode, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.TenderID,
			c.Name,
			c.Description,
			c.Weight,
			c.HigherIsBetter,
			c.Mode,
			c.Position)
		if err != nil {
			return fmt.Errorf("failed to insert criterion: %w", err)
		}
	}
	return nil
}

// syncCriteria приводит критерии тендера в базе к after. Удаленные критерии
// удаляются вместе с ответами на них, сохраненные обновляются на месте.
func syncCriteria(ctx context.Context, q querier, tenderId string, before, after []models.Criterion) error {
	if sameCriteria(before, after) {
		return nil
	}
	if removed := removedCriteria(before, after); len(removed) > 0 {
		_, err := q.Exec(ctx, `DELETE FROM tender_criteria WHERE tender_id = $1 AND id = ANY($2)`,
			tenderId, pq.Array(removed))
		if err != nil {
			return fmt.Errorf("failed to delete criteria: %w", err)
		}
	}

	existing := make(map[string]bool, len(before))
	for _, c := range before {
		existing[c.ID] = true
	}
	var added []models.Criterion
	for _, c := range after {
		if !existing[c.ID] {
			added = append(added, c)
			continue
		}
		_, err := q.Exec(ctx, `
			UPDATE tender_criteria SET name = $2, description = $3, weight = $4, higher_is_better = $5,
				scoring_mode = $6, position = $7
			WHERE id = $1`,
			c.ID,
			c.Name,
			c.Description,
			c.Weight,
			c.HigherIsBetter,
			c.Mode,
			c.Position)
		if err != nil {
			return fmt.Errorf("failed to update criterion: %w", err)
		}
	}
	return insertCriteria(ctx, q, added)
}

// removedCriteria возвращает id критериев из before, которых нет в after.
func removedCriteria(before, after []models.Criterion) []string {
	kept := make(map[string]bool, len(after))
	for _, c := range after {
		kept[c.ID] = true
	}
	var removed []string
	for _, c := range before {
		if !kept[c.ID] {
			removed = append(removed, c.ID)
		}
	}
	return removed
}

func sameCriteria(a, b []models.Criterion) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Name != y.Name || !x.Weight.Equal(y.Weight) || x.HigherIsBetter != y.HigherIsBetter ||
			x.Mode != y.Mode || x.Position != y.Position || !equalText(x.Description, y.Description) {
			return false
		}
	}
	return true
}

func equalText(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package repository

import (
	"context"
	"errors"

	"github.com/senyabanana/licitaciones-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceRepository - справочники, на которые ссылаются тендеры и предложения.
type ReferenceRepository interface {
	CompanyExists(ctx context.Context, companyId string) (bool, error)
	ProjectBelongsToCompany(ctx context.Context, projectId, companyId string) (bool, error)
	CategoryExists(ctx context.Context, categoryId string) (bool, error)
	CurrencyExists(ctx context.Context, currencyId string) (bool, error)
	GetSupplier(ctx context.Context, supplierId string) (*models.Supplier, error)
}

// PostgresReferenceRepository - реализация ReferenceRepository для базы данных.
type PostgresReferenceRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresReferenceRepository создает новый экземпляр PostgresReferenceRepository.
func NewPostgresReferenceRepository(db *pgxpool.Pool) *PostgresReferenceRepository {
	return &PostgresReferenceRepository{DB: db}
}

// CompanyExists проверяет, существует ли компания.
func (r *PostgresReferenceRepository) CompanyExists(ctx context.Context, companyId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM companies WHERE id = $1)`
	err := r.DB.QueryRow(ctx, query, companyId).Scan(&exists)
	return exists, err
}

// ProjectBelongsToCompany проверяет, что проект существует и принадлежит компании.
func (r *PostgresReferenceRepository) ProjectBelongsToCompany(ctx context.Context, projectId, companyId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND company_id = $2)`
	err := r.DB.QueryRow(ctx, query, projectId, companyId).Scan(&exists)
	return exists, err
}

// CategoryExists проверяет, существует ли категория.
func (r *PostgresReferenceRepository) CategoryExists(ctx context.Context, categoryId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`
	err := r.DB.QueryRow(ctx, query, categoryId).Scan(&exists)
	return exists, err
}

// CurrencyExists проверяет, существует ли валюта.
func (r *PostgresReferenceRepository) CurrencyExists(ctx context.Context, currencyId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM currencies WHERE id = $1)`
	err := r.DB.QueryRow(ctx, query, currencyId).Scan(&exists)
	return exists, err
}

// GetSupplier получает поставщика по ID, nil если его нет.
func (r *PostgresReferenceRepository) GetSupplier(ctx context.Context, supplierId string) (*models.Supplier, error) {
	return getSupplier(ctx, r.DB, supplierId)
}

func getSupplier(ctx context.Context, q querier, supplierId string) (*models.Supplier, error) {
	var s models.Supplier
	err := q.QueryRow(ctx, `SELECT id, name FROM suppliers WHERE id = $1`, supplierId).Scan(&s.ID, &s.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hray3182/tincan/internal/database"
	"github.com/hray3182/tincan/internal/models"
)

type BudgetRepository struct {
	db *database.DB
}

func NewBudgetRepository(db *database.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) ListBudgetOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT DISTINCT user_id FROM budgets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *BudgetRepository) ListBudgetsForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, user_id, name, amount, period, category_id, start_date, end_date
		 FROM budgets WHERE user_id = $1 ORDER BY id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Amount, &b.Period, &b.CategoryID, &b.StartDate, &b.EndDate); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

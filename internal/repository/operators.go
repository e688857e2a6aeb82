package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/cerita/nobat/internal/model"
)

type OperatorsRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.Operator, error)
}

type OperatorsRepositoryImpl struct {
	db *sqlx.DB
}

func NewOperatorsRepository(db *sqlx.DB) *OperatorsRepositoryImpl {
	return &OperatorsRepositoryImpl{db: db}
}

var _ OperatorsRepository = (*OperatorsRepositoryImpl)(nil)

func (r *OperatorsRepositoryImpl) GetByUserID(ctx context.Context, userID string) (*model.Operator, error) {
	var op model.Operator
	err := r.db.GetContext(ctx, &op, `
		SELECT id, user_id, name, status, created_at, updated_at
		  FROM operators
		 WHERE user_id = ? LIMIT 1
	`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}

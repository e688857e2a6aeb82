package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/cerita/nobat/internal/model"
)

// OutboxRepository appends events for the Debezium outbox relay to publish.
type OutboxRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
}

type OutboxRepositoryImpl struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) *OutboxRepositoryImpl {
	return &OutboxRepositoryImpl{db: db}
}

var _ OutboxRepository = (*OutboxRepositoryImpl)(nil)

// Insert writes inside the caller's transaction so the event commits or
// rolls back together with the state change that caused it.
func (r *OutboxRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	const q = `
		INSERT INTO outbox
		    (aggregate, aggregate_id, topic, payload, attempts, created_at, updated_at)
		VALUES
		    (?,         ?,            ?,     ?,       0,        NOW(),      NOW())
	`
	_, err := tx.ExecContext(ctx, q, ev.Aggregate, ev.AggregateID, ev.Topic, ev.Payload)
	return err
}

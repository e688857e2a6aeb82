package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// NotificationRecord is one delivered comment-survey SMS.
type NotificationRecord struct {
	MessageID string    `db:"message_id" json:"message_id"` // ULID of the SMS attempt (dedup key)
	TurnID    string    `db:"turn_id"    json:"turn_id"`
	Phone     string    `db:"phone"      json:"phone"`
	Provider  string    `db:"provider"   json:"provider"`
	SentAt    time.Time `db:"sent_at"    json:"sent_at"`
}

// CHNotificationsRepository is the ClickHouse read model of delivered
// survey SMS, used by the reports endpoint.
type CHNotificationsRepository interface {
	InsertBatch(ctx context.Context, rows []NotificationRecord) error
	List(ctx context.Context, phone string, limit, offset int) ([]NotificationRecord, error)
}

type chNotificationsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHNotificationsRepository(ch *sqlx.DB) CHNotificationsRepository {
	return &chNotificationsRepository{ch: ch}
}

func (r *chNotificationsRepository) InsertBatch(ctx context.Context, rows []NotificationRecord) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO nobat.notifications
		    (message_id, turn_id, phone, provider, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.MessageID, row.TurnID, row.Phone, row.Provider, row.SentAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *chNotificationsRepository) List(ctx context.Context, phone string, limit, offset int) ([]NotificationRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT message_id, turn_id, phone, provider, sent_at
		FROM nobat.notifications
	`
	args := []any{}

	if phone != "" {
		q += " WHERE phone = ?"
		args = append(args, phone)
	}

	q += " ORDER BY sent_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []NotificationRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cerita/nobat/internal/model"
)

// TurnsRepository defines persistence for the turns table.
type TurnsRepository interface {
	ListByDate(ctx context.Context, date string) ([]model.Turn, error)
	GetByID(ctx context.Context, id string) (*model.Turn, error)
	SlotTaken(ctx context.Context, tx *sqlx.Tx, slot model.Slot, excludeID string) (bool, error)
	Insert(ctx context.Context, tx *sqlx.Tx, t model.Turn) error
	Update(ctx context.Context, tx *sqlx.Tx, t model.Turn) error
	Delete(ctx context.Context, tx *sqlx.Tx, id string) (bool, error)
	BatchAppendFlag(ctx context.Context, tx *sqlx.Tx, ids []string, flag string) error
}

type TurnsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTurnsRepository(db *sqlx.DB) *TurnsRepositoryImpl {
	return &TurnsRepositoryImpl{db: db}
}

var _ TurnsRepository = (*TurnsRepositoryImpl)(nil)

// turnRow mirrors the table; slot and status are decoded into model.Turn
// right here and nowhere else.
type turnRow struct {
	ID          string    `db:"id"`
	RefName     string    `db:"refname"`
	RefPhone    string    `db:"refphone"`
	User        string    `db:"operator_tag"`
	Description string    `db:"description"`
	SlotDate    string    `db:"slot_date"`
	SlotTime    string    `db:"slot_time"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r turnRow) toModel() model.Turn {
	return model.Turn{
		ID:          r.ID,
		RefName:     r.RefName,
		RefPhone:    r.RefPhone,
		User:        r.User,
		Description: r.Description,
		Slot:        model.Slot{Date: r.SlotDate, Time: r.SlotTime},
		Status:      model.ParseStatusFlags(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const turnColumns = `id, refname, refphone, operator_tag, description, slot_date, slot_time, status, created_at, updated_at`

func (r *TurnsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// ListByDate returns the full day ordered by slot time.
func (r *TurnsRepositoryImpl) ListByDate(ctx context.Context, date string) ([]model.Turn, error) {
	var rows []turnRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+turnColumns+`
		  FROM turns
		 WHERE slot_date = ?
		 ORDER BY slot_time ASC
	`, date)
	if err != nil {
		return nil, err
	}
	turns := make([]model.Turn, 0, len(rows))
	for _, row := range rows {
		turns = append(turns, row.toModel())
	}
	return turns, nil
}

func (r *TurnsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Turn, error) {
	var row turnRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+turnColumns+`
		  FROM turns
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := row.toModel()
	return &t, nil
}

// SlotTaken reports whether another turn already occupies the slot.
// Runs inside the caller's transaction so create/update stay conflict-safe.
func (r *TurnsRepositoryImpl) SlotTaken(ctx context.Context, tx *sqlx.Tx, slot model.Slot, excludeID string) (bool, error) {
	var n int
	err := tx.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM turns
		 WHERE slot_date = ? AND slot_time = ? AND id <> ?
	`, slot.Date, slot.Time, excludeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TurnsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, t model.Turn) error {
	const q = `
		INSERT INTO turns
		    (id, refname, refphone, operator_tag, description, slot_date, slot_time, status, created_at, updated_at)
		VALUES
		    (?,  ?,       ?,        ?,            ?,           ?,         ?,         ?,      NOW(),     NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			t.ID, t.RefName, t.RefPhone, t.User, t.Description,
			t.Slot.Date, t.Slot.Time, t.Status.String(),
		)
		return err
	})
}

// Update replaces every mutable field (full-replace semantics).
func (r *TurnsRepositoryImpl) Update(ctx context.Context, tx *sqlx.Tx, t model.Turn) error {
	const q = `
		UPDATE turns
		   SET refname = ?, refphone = ?, operator_tag = ?, description = ?,
		       slot_date = ?, slot_time = ?, updated_at = NOW()
		 WHERE id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			t.RefName, t.RefPhone, t.User, t.Description,
			t.Slot.Date, t.Slot.Time, t.ID,
		)
		return err
	})
}

// Delete reports whether a row was actually removed.
func (r *TurnsRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, id string) (bool, error) {
	var affected int64
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected > 0, err
}

// BatchAppendFlag adds a status flag to many turns in one statement.
// FIND_IN_SET keeps it idempotent under at-least-once delivery.
func (r *TurnsRepositoryImpl) BatchAppendFlag(ctx context.Context, tx *sqlx.Tx, ids []string, flag string) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `
		UPDATE turns
		   SET status = IF(status = '', ?, CONCAT(status, ',', ?)), updated_at = NOW()
		 WHERE id IN (?) AND FIND_IN_SET(?, status) = 0
	`
	query, args, err := sqlx.In(base, flag, flag, ids, flag)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

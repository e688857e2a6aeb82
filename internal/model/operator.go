package model

import "time"

type Operator struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"` // the identifier typed into the login prompt
	Name      string    `db:"name"`
	Status    string    `db:"status"` // active|suspended
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

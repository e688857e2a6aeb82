package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/cerita/nobat/internal/config"
	"github.com/cerita/nobat/internal/db"
	"github.com/cerita/nobat/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo operators",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo operators...")

		if err := seedOperators(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// seedOperators inserts deterministic demo operators (idempotent).
func seedOperators(dbx *sqlx.DB) error {
	operators := []model.Operator{
		{UserID: "reception1", Name: "Front desk", Status: "active"},
		{UserID: "reception2", Name: "Front desk (evening)", Status: "active"},
		{UserID: "manager", Name: "Clinic manager", Status: "active"},
		{UserID: "trainee", Name: "Trainee", Status: "suspended"},
	}

	// idempotent upsert based on user_id (UNIQUE)
	const q = `
INSERT INTO operators
    (user_id, name, status, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name       = VALUES(name),
    status     = VALUES(status),
    updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, op := range operators {
		if _, err := tx.Exec(q, op.UserID, op.Name, op.Status, now, now); err != nil {
			return fmt.Errorf("insert operator %q: %w", op.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit operators: %w", err)
	}
	return nil
}

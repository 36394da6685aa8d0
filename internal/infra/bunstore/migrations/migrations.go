// Package migrations holds the bun migrations for the quiz store. The DDL is
// generated from the domain models so the same migrations run against SQLite
// and Postgres.
package migrations

import (
	"context"

	"classquiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

func createTables(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*domain.Session)(nil),
		(*domain.Question)(nil),
		(*domain.AnswerRecord)(nil),
		(*domain.User)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := db.NewCreateIndex().
		Model((*domain.AnswerRecord)(nil)).
		Index("idx_results_session").
		Column("session_id").
		IfNotExists().
		Exec(ctx)
	return err
}

func dropTables(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*domain.User)(nil),
		(*domain.AnswerRecord)(nil),
		(*domain.Question)(nil),
		(*domain.Session)(nil),
	}
	for _, model := range models {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

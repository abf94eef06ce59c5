package pg

import (
	"context"
	"fmt"

	"portfolio-service/internal/application"
	"portfolio-service/internal/infrastructure/logx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SeedIfEmpty copies the positions held by src into an empty positions table and
// reports how many were copied. A table that already has rows is left untouched.
func (r *PositionRepo) SeedIfEmpty(ctx context.Context, src application.PortfolioStore) (int, error) {
	seeded := 0
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		// api and worker may start together
		if _, err := tx.Exec(ctx, `LOCK TABLE positions IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM positions`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		ps, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("load seed portfolio: %w", err)
		}
		if len(ps) == 0 {
			return nil
		}
		for i := range ps {
			if ps[i].ID == "" {
				ps[i].ID = uuid.NewString()
			}
			if ps[i].Currency == "" {
				ps[i].Currency = "USD"
			}
		}
		if err := r.save(context.WithValue(ctx, txKey{}, tx), tx, ps); err != nil {
			return err
		}
		seeded = len(ps)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed positions: %w", err)
	}
	if seeded > 0 {
		logx.WithFields(ctx).Info("portfolio_migrated", zap.Int("positions", seeded))
	}
	return seeded, nil
}

package pg

import (
	"context"

	"portfolio-service/internal/application"
	"portfolio-service/internal/domain"
	"portfolio-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PositionRepo stores the portfolio as one row per position.
type PositionRepo struct{ db *DB }

var _ application.PortfolioStore = (*PositionRepo)(nil)

func NewPositionRepo(db *DB) *PositionRepo { return &PositionRepo{db: db} }

func (r *PositionRepo) Load(ctx context.Context) ([]domain.Position, error) {
	q := `
        SELECT id, ticker, quantity, buy_price, buy_date, currency, sort_order
        FROM positions ORDER BY created_at, id`
	if txFromCtx(ctx) != nil {
		q += ` FOR UPDATE`
	}
	log := logx.WithFields(ctx).With(
		zap.String("repo", "position"),
		zap.String("operation", "Load"),
	)
	log.Debug("sql.query_start")
	rows, err := r.db.conn(ctx).Query(ctx, q)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Position, error) {
		var p domain.Position
		err := row.Scan(&p.ID, &p.Ticker, &p.Quantity, &p.BuyPrice, &p.BuyDate, &p.Currency, &p.Order)
		return p, err
	})
	if err != nil {
		log.Error("sql.scan_failed", zap.Error(err))
		return nil, err
	}
	log.Debug("sql.query_success", zap.Int("rows", len(out)))
	return out, nil
}

// Save makes the table match positions exactly.
func (r *PositionRepo) Save(ctx context.Context, positions []domain.Position) error {
	if txFromCtx(ctx) != nil {
		return r.save(ctx, r.db.conn(ctx), positions)
	}
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return r.save(ctx, tx, positions)
	})
}

func (r *PositionRepo) save(ctx context.Context, q querier, positions []domain.Position) error {
	log := logx.WithFields(ctx).With(
		zap.String("repo", "position"),
		zap.String("operation", "Save"),
		zap.Int("positions", len(positions)),
	)
	ids := make([]string, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.ID)
	}
	tag, err := q.Exec(ctx, `DELETE FROM positions WHERE NOT (id = ANY($1))`, ids)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	const up = `
        INSERT INTO positions (id, ticker, quantity, buy_price, buy_date, currency, sort_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO UPDATE
          SET ticker=EXCLUDED.ticker, quantity=EXCLUDED.quantity, buy_price=EXCLUDED.buy_price,
              buy_date=EXCLUDED.buy_date, currency=EXCLUDED.currency, sort_order=EXCLUDED.sort_order,
              updated_at=now()`
	for _, p := range positions {
		if _, err := q.Exec(ctx, up, p.ID, p.Ticker, p.Quantity, p.BuyPrice, p.BuyDate, p.Currency, p.Order); err != nil {
			log.Error("sql.exec_failed", zap.String("id", p.ID), zap.Error(err))
			return err
		}
	}
	log.Info("sql.exec_success", zap.Int64("deleted", tag.RowsAffected()))
	return nil
}

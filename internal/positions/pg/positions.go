package pg

import (
	"context"
	"errors"
	"fmt"

	"signal_trader/internal/models"
	"signal_trader/pkg/db"

	"github.com/jackc/pgx/v5"
)

// Positions implement db store
type Positions struct {
	db *db.PgTxManager
}

// NewPositions instance
func NewPositions(txm *db.PgTxManager) *Positions {
	return &Positions{db: txm}
}

const positionColumns = `id, account_id, symbol, status, qty, avg_cost_usdt,
	total_buy_fees, total_sell_fees, total_buy_amount, total_sell_amount,
	realized_pnl, opened_at, closed_at`

// FindOpen in db
func (p *Positions) FindOpen(ctx context.Context, accountID, symbol string) (pos *models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.FindOpen: %w", err)
		}
	}()

	row := p.db.Conn().QueryRow(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE account_id = $1 AND symbol = $2 AND status = 'OPEN'`,
		accountID, symbol,
	)
	pos, err = scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// ListOpen in db
func (p *Positions) ListOpen(ctx context.Context, accountID string) (res []*models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListOpen: %w", err)
		}
	}()

	rows, err := p.db.Conn().Query(ctx,
		`SELECT `+positionColumns+`
		 FROM positions
		 WHERE account_id = $1 AND status = 'OPEN'
		 ORDER BY opened_at`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, pos)
	}
	return res, rows.Err()
}

// Insert in db
func (p *Positions) Insert(ctx context.Context, pos *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Insert: %w", err)
		}
	}()

	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx,
			`INSERT INTO positions (
				account_id, symbol, status, qty, avg_cost_usdt,
				total_buy_fees, total_sell_fees, total_buy_amount, total_sell_amount,
				realized_pnl, opened_at, closed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			pos.AccountID, pos.Symbol, pos.Status, pos.Qty, pos.AvgCostUsdt,
			pos.TotalBuyFees, pos.TotalSellFees, pos.TotalBuyAmount, pos.TotalSellAmount,
			pos.RealizedPnl, pos.OpenedAt, pos.ClosedAt,
		).Scan(&pos.ID)
	})
}

// Update in db
func (p *Positions) Update(ctx context.Context, pos *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Update: %w", err)
		}
	}()

	return p.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx,
			`UPDATE positions SET
				status = $2, qty = $3, avg_cost_usdt = $4,
				total_buy_fees = $5, total_sell_fees = $6,
				total_buy_amount = $7, total_sell_amount = $8,
				realized_pnl = $9, closed_at = $10
			 WHERE id = $1`,
			pos.ID, pos.Status, pos.Qty, pos.AvgCostUsdt,
			pos.TotalBuyFees, pos.TotalSellFees,
			pos.TotalBuyAmount, pos.TotalSellAmount,
			pos.RealizedPnl, pos.ClosedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("position %d not found", pos.ID)
		}
		return nil
	})
}

func scanPosition(row pgx.Row) (*models.Position, error) {
	var pos models.Position
	var realized *float64
	err := row.Scan(
		&pos.ID, &pos.AccountID, &pos.Symbol, &pos.Status,
		&pos.Qty, &pos.AvgCostUsdt,
		&pos.TotalBuyFees, &pos.TotalSellFees,
		&pos.TotalBuyAmount, &pos.TotalSellAmount,
		&realized, &pos.OpenedAt, &pos.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	if realized != nil {
		pos.RealizedPnl = *realized
	}
	return &pos, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jelloshooter848/webcash-bitcoin-exchange/internal/engine"
)

// Postgres implements engine.Store on a pgx pool. Each commit runs in one
// transaction; the remaining-quantity compare-and-swap is expressed in the
// UPDATE's WHERE clause, so a concurrent consumer of the same order makes
// the update match zero rows and the commit reports ErrStaleQuantity.
//
// Decimal parameters require the shopspring codec registered on each
// connection; see db.NewPool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const orderColumns = `id, user_id, side, amount_wc, price_btc, status, created_at`

func (p *Postgres) InsertOrder(ctx context.Context, o *engine.Order) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, side, amount_wc, price_btc, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.Owner, string(o.Side),
		decimal.NewFromFloat(o.Quantity), decimal.NewFromFloat(o.UnitPrice),
		string(o.Status), o.CreatedAt,
	)
	return err
}

func (p *Postgres) OpenOrders(ctx context.Context, f engine.Filter) ([]engine.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'open'`
	var args []any
	if f.Side != "" {
		args = append(args, string(f.Side))
		q += fmt.Sprintf(" AND side = $%d", len(args))
	}
	if f.Owner != "" {
		args = append(args, f.Owner)
		q += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	q += " ORDER BY created_at ASC, id ASC"

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (engine.Order, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.Order{}, engine.ErrOrderNotFound
	}
	return o, err
}

func (p *Postgres) CommitFill(ctx context.Context, fc engine.FillCommit) (engine.CommitResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return engine.CommitResult{}, err
	}
	defer tx.Rollback(ctx)

	buy, err := applyFill(ctx, tx, fc.BuyOrderID, fc.BuyRemaining, fc.Quantity)
	if err != nil {
		return engine.CommitResult{}, err
	}
	sell, err := applyFill(ctx, tx, fc.SellOrderID, fc.SellRemaining, fc.Quantity)
	if err != nil {
		return engine.CommitResult{}, err
	}
	if buy.Owner == sell.Owner {
		return engine.CommitResult{}, fmt.Errorf("%w: buyer and seller are the same party", engine.ErrInvalidInput)
	}

	tradeID, err := insertTrade(ctx, tx, buy.Owner, sell.Owner, fc.Quantity, fc.Value)
	if err != nil {
		return engine.CommitResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return engine.CommitResult{}, err
	}
	return engine.CommitResult{TradeID: tradeID, Buy: buy, Sell: sell}, nil
}

func (p *Postgres) CommitTakerFill(ctx context.Context, tf engine.TakerFill) (engine.TakerCommitResult, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return engine.TakerCommitResult{}, err
	}
	defer tx.Rollback(ctx)

	resting, err := applyFill(ctx, tx, tf.RestingOrderID, tf.RestingRemaining, tf.Quantity)
	if err != nil {
		return engine.TakerCommitResult{}, err
	}
	if resting.Owner == tf.TakerOwner {
		return engine.TakerCommitResult{}, fmt.Errorf("%w: buyer and seller are the same party", engine.ErrInvalidInput)
	}

	buyer, seller := tf.TakerOwner, resting.Owner
	if tf.TakerSide == engine.SideSell {
		buyer, seller = resting.Owner, tf.TakerOwner
	}
	tradeID, err := insertTrade(ctx, tx, buyer, seller, tf.Quantity, tf.Value)
	if err != nil {
		return engine.TakerCommitResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return engine.TakerCommitResult{}, err
	}
	return engine.TakerCommitResult{TradeID: tradeID, Resting: resting}, nil
}

func (p *Postgres) CancelOrder(ctx context.Context, id, owner string) (engine.Order, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE orders
		   SET status = 'cancelled', updated_at = now()
		 WHERE id = $1 AND user_id = $2 AND status = 'open'
		RETURNING `+orderColumns, id, owner)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.Order{}, engine.ErrOrderNotFound
	}
	return o, err
}

func (p *Postgres) RecentTrades(ctx context.Context, limit int) ([]engine.Trade, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, buyer_id, seller_id, amount_wc, total_btc, status, created_at
		  FROM trades
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Trade
	for rows.Next() {
		var t engine.Trade
		if err := rows.Scan(&t.ID, &t.BuyerID, &t.SellerID, &t.AmountWC, &t.TotalBTC, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// applyFill performs the guarded quantity update for one order. The WHERE
// clause is the compare-and-swap: the persisted quantity must still equal
// remaining + qty or no row matches.
func applyFill(ctx context.Context, tx pgx.Tx, orderID string, remaining, qty decimal.Decimal) (engine.Order, error) {
	row := tx.QueryRow(ctx, `
		UPDATE orders
		   SET amount_wc = $2,
		       status = CASE WHEN $2 = 0 THEN 'matched' ELSE status END,
		       updated_at = now()
		 WHERE id = $1 AND status = 'open' AND amount_wc = $2 + $3
		RETURNING `+orderColumns, orderID, remaining, qty)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		probeErr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND status = 'open')`,
			orderID).Scan(&exists)
		if probeErr != nil {
			return engine.Order{}, probeErr
		}
		if !exists {
			return engine.Order{}, fmt.Errorf("%w: %s", engine.ErrOrderNotFound, orderID)
		}
		return engine.Order{}, fmt.Errorf("%w: order %s", engine.ErrStaleQuantity, orderID)
	}
	return o, err
}

func insertTrade(ctx context.Context, tx pgx.Tx, buyer, seller string, amount, total decimal.Decimal) (string, error) {
	tradeID := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO trades (id, buyer_id, seller_id, amount_wc, total_btc, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		tradeID, buyer, seller, amount, total, tradeStatusComplete)
	return tradeID, err
}

func scanOrder(row pgx.Row) (engine.Order, error) {
	var (
		o      engine.Order
		side   string
		status string
	)
	if err := row.Scan(&o.ID, &o.Owner, &side, &o.Quantity, &o.UnitPrice, &status, &o.CreatedAt); err != nil {
		return engine.Order{}, err
	}
	o.Side = engine.Side(side)
	o.Status = engine.Status(status)
	return o, nil
}

package costs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsboard/opsboard/internal/platform/db"
)

// PGRepository stores the ledger in PostgreSQL. Costs are shared by every user.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load reads both cost tables from one consistent snapshot.
func (r *PGRepository) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		ProductCosts:  map[string]Entry{},
		AdCostsByDate: map[string]map[string]map[Platform]Entry{},
	}
	err := db.WithReadOnlyTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT product, value FROM product_costs`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var product, value string
			if err := rows.Scan(&product, &value); err != nil {
				rows.Close()
				return err
			}
			snap.ProductCosts[product] = Entry(value)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT cost_date, product, platform, value FROM ad_costs ORDER BY cost_date`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				date              time.Time
				product, platform string
				value             string
			)
			if err := rows.Scan(&date, &product, &platform, &value); err != nil {
				return err
			}
			day := date.Format(dateLayout)
			byProduct := snap.AdCostsByDate[day]
			if byProduct == nil {
				byProduct = map[string]map[Platform]Entry{}
				snap.AdCostsByDate[day] = byProduct
			}
			if byProduct[product] == nil {
				byProduct[product] = map[Platform]Entry{}
			}
			byProduct[product][Platform(platform)] = Entry(value)
		}
		return rows.Err()
	})
	return snap, err
}

// SaveProductCost upserts, or deletes when value is unset.
func (r *PGRepository) SaveProductCost(ctx context.Context, product string, value Entry) error {
	if !value.IsSet() {
		_, err := r.pool.Exec(ctx, `DELETE FROM product_costs WHERE product = $1`, product)
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_costs (product, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (product) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		product, string(value))
	return err
}

// SaveAdCost upserts, or deletes when value is unset.
func (r *PGRepository) SaveAdCost(ctx context.Context, date, product string, platform Platform, value Entry) error {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return err
	}
	if !value.IsSet() {
		_, err := r.pool.Exec(ctx, `DELETE FROM ad_costs WHERE cost_date = $1 AND product = $2 AND platform = $3`,
			day, product, string(platform))
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO ad_costs (cost_date, product, platform, value, updated_at) VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (cost_date, product, platform) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		day, product, string(platform), string(value))
	return err
}

// DeleteAllProductCosts truncates the product cost table.
func (r *PGRepository) DeleteAllProductCosts(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM product_costs`)
	return err
}

// DeleteAllAdCosts truncates the ad cost table.
func (r *PGRepository) DeleteAllAdCosts(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM ad_costs`)
	return err
}

var _ Repository = (*PGRepository)(nil)

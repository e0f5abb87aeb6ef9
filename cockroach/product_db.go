package cockroach

import (
	"context"
	"fmt"

	"github.com/batimarket/batimarket/errs"
	"github.com/batimarket/batimarket/types"
	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
)

func (c *Cockroach) Product(ctx context.Context, productID string) (types.Product, error) {
	var out types.Product

	const q = `
		SELECT id, supplier_id, name, price, image_url, created_at
		FROM products
		WHERE id = @product_id
	`

	rows, err := c.db.Query(ctx, q, pgx.StrictNamedArgs{
		"product_id": productID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select product: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Product])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("product not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect product: %w", err)
	}

	return out, nil
}

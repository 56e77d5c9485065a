package storage

import (
	"context"
	"database/sql"
)

// Items comprables en el /shop que este bot consume.
const ItemPriorityPass = "priority_pass"

type InventoryRepo struct{ db *sql.DB }

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) Count(ctx context.Context, guildID, userID, itemID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT quantity FROM user_inventory
 WHERE guild_id = $1 AND user_id = $2 AND item_id = $3
`, guildID, userID, itemID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// Use descuenta una unidad; devuelve false si no había stock.
func (r *InventoryRepo) Use(ctx context.Context, guildID, userID, itemID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE user_inventory
   SET quantity = quantity - 1
 WHERE guild_id = $1 AND user_id = $2 AND item_id = $3 AND quantity > 0
`, guildID, userID, itemID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *InventoryRepo) Grant(ctx context.Context, guildID, userID, itemID string, qty int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_inventory (guild_id, user_id, item_id, quantity)
VALUES ($1,$2,$3,$4)
ON CONFLICT (guild_id, user_id, item_id) DO UPDATE SET
  quantity = user_inventory.quantity + EXCLUDED.quantity
`, guildID, userID, itemID, qty)
	return err
}

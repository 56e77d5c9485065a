package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Limpieza periódica: tracks que nunca se reviewaron y quedaron colgados
// de sesiones viejas, e inventario en cero.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// los priorizados tienen submitted_at en epoch, no los tocamos
	_, _ = pool.Exec(cctx, `
DELETE FROM submissions
WHERE status != 'reviewed'
  AND submitted_at > 'epoch'::timestamptz
  AND submitted_at < now() - INTERVAL '30 days';`)
	_, _ = pool.Exec(cctx, `DELETE FROM user_inventory WHERE quantity <= 0;`)

	return "ok", nil
}

func main() { lambda.Start(handler) }

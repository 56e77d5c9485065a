package storage

import (
	"context"
	"database/sql"
)

type LeaderboardRepo struct{ db *sql.DB }

func NewLeaderboardRepo(db *sql.DB) *LeaderboardRepo { return &LeaderboardRepo{db: db} }

// RecordBattle acumula el resultado de una ronda en el histórico:
// ganador +1 punto/win/streak, perdedor +1 loss y streak a cero.
// Siempre suma lineal, sin clamps.
func (r *LeaderboardRepo) RecordBattle(ctx context.Context, guildID, winnerID, loserID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO koth_leaderboard (guild_id, user_id, points, wins, losses, streak)
VALUES ($1,$2,1,1,0,1)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
  points = koth_leaderboard.points + 1,
  wins   = koth_leaderboard.wins + 1,
  streak = koth_leaderboard.streak + 1
`, guildID, winnerID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO koth_leaderboard (guild_id, user_id, points, wins, losses, streak)
VALUES ($1,$2,0,0,1,0)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
  losses = koth_leaderboard.losses + 1,
  streak = 0
`, guildID, loserID)
	return err
}

// Adjust suma (o resta) puntos a mano, sin tocar wins/losses/streak.
func (r *LeaderboardRepo) Adjust(ctx context.Context, guildID, userID string, delta int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO koth_leaderboard (guild_id, user_id, points)
VALUES ($1,$2,$3)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
  points = koth_leaderboard.points + EXCLUDED.points
`, guildID, userID, delta)
	return err
}

func (r *LeaderboardRepo) Top(ctx context.Context, guildID string, limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, user_id, points, wins, losses, streak
  FROM koth_leaderboard
 WHERE guild_id = $1
 ORDER BY points DESC, user_id ASC
 LIMIT $2
`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var lr LeaderboardRow
		if err := rows.Scan(&lr.GuildID, &lr.UserID, &lr.Points, &lr.Wins, &lr.Losses, &lr.Streak); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

// Reset borra el histórico completo del guild (comando admin).
func (r *LeaderboardRepo) Reset(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM koth_leaderboard WHERE guild_id = $1`, guildID)
	return err
}

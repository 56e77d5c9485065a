package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const settingsCols = `guild_id, submission_status, submissions_enabled, submission_channel_id,
       koth_channel_id, review_channel_id, panel_message_id, koth_winner_role_id,
       koth_king_id, koth_king_submission_id, koth_tiebreaker_users, created_at, updated_at`

func scanSettings(row *sql.Row) (GuildSettings, error) {
	var s GuildSettings
	err := row.Scan(
		&s.GuildID, &s.SubmissionStatus, &s.SubmissionsEnabled, &s.SubmissionChannelID,
		&s.KothChannelID, &s.ReviewChannelID, &s.PanelMessageID, &s.KothWinnerRoleID,
		&s.KothKingID, &s.KothKingSubmissionID, &s.KothTiebreakerUsers, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Get crea la fila default si el guild todavía no tiene settings.
func (r *SettingsRepo) Get(ctx context.Context, guildID string) (GuildSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, `
SELECT `+settingsCols+` FROM guild_settings WHERE guild_id = $1
`, guildID))
	if err == sql.ErrNoRows {
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING
`, guildID); err != nil {
			return GuildSettings{}, err
		}
		return r.Get(ctx, guildID)
	}
	return s, err
}

func (r *SettingsRepo) SetStatus(ctx context.Context, guildID, status string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET submission_status = $1, updated_at = now()
 WHERE guild_id = $2
`, status, guildID)
	return err
}

// SetKing: con (nil, nil) limpia el trono.
func (r *SettingsRepo) SetKing(ctx context.Context, guildID string, userID *string, submissionID *int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET koth_king_id = $1, koth_king_submission_id = $2, updated_at = now()
 WHERE guild_id = $3
`, userID, submissionID, guildID)
	return err
}

func (r *SettingsRepo) SetTiebreakerUsers(ctx context.Context, guildID string, pair *string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET koth_tiebreaker_users = $1, updated_at = now()
 WHERE guild_id = $2
`, pair, guildID)
	return err
}

// ResetKothFields deja los tres campos de batalla en null y el status en
// koth_closed, todo en un statement (contrato de finalize).
func (r *SettingsRepo) ResetKothFields(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET koth_king_id = NULL,
       koth_king_submission_id = NULL,
       koth_tiebreaker_users = NULL,
       submission_status = 'koth_closed',
       updated_at = now()
 WHERE guild_id = $1
`, guildID)
	return err
}

func (r *SettingsRepo) SetPanelMessage(ctx context.Context, guildID, messageID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET panel_message_id = $1, updated_at = now()
 WHERE guild_id = $2
`, messageID, guildID)
	return err
}

func (r *SettingsRepo) Update(ctx context.Context, guildID string, u GuildSettingsUpdate) (GuildSettings, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	i := 1

	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}
	if u.SubmissionChannelID != nil {
		add("submission_channel_id", *u.SubmissionChannelID)
	}
	if u.KothChannelID != nil {
		add("koth_channel_id", *u.KothChannelID)
	}
	if u.ReviewChannelID != nil {
		add("review_channel_id", *u.ReviewChannelID)
	}
	if u.KothWinnerRoleID != nil {
		add("koth_winner_role_id", *u.KothWinnerRoleID)
	}
	if u.SubmissionsEnabled != nil {
		add("submissions_enabled", *u.SubmissionsEnabled)
	}
	if len(sets) == 0 {
		// nada que cambiar
		return r.Get(ctx, guildID)
	}
	add("updated_at", time.Now())
	args = append(args, guildID)

	_, err := r.db.ExecContext(ctx, `
UPDATE guild_settings
   SET `+strings.Join(sets, ", ")+`
 WHERE guild_id = $`+fmt.Sprint(i), args...)
	if err != nil {
		return GuildSettings{}, err
	}
	return r.Get(ctx, guildID)
}

package service

import (
	"context"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.SubmissionRepo
type SubmissionStore interface {
	Enqueue(ctx context.Context, guildID, userID, trackURL, subType string) (int64, error)
	DequeueNext(ctx context.Context, guildID, subType string) (storage.Submission, error)
	Get(ctx context.Context, id int64) (storage.Submission, error)
	Mark(ctx context.Context, id int64, status string, reviewerID *string) error
	Prioritize(ctx context.Context, id int64) error
	ClearUnreviewed(ctx context.Context, guildID, subType string) (int64, error)
	QueueCount(ctx context.Context, guildID, subType string) (int, error)
	ReviewedCount(ctx context.Context, guildID, subType string) (int, error)
	UserCount(ctx context.Context, guildID, userID, subType string) (int, error)
	LatestPending(ctx context.Context, guildID, userID, subType string) (int64, error)
	ReviewingUser(ctx context.Context, guildID, subType string) (string, error)
}

// Lo implementa internal/infra/storage.LeaderboardRepo
type Leaderboard interface {
	RecordBattle(ctx context.Context, guildID, winnerID, loserID string) error
	Adjust(ctx context.Context, guildID, userID string, delta int) error
	Top(ctx context.Context, guildID string, limit int) ([]storage.LeaderboardRow, error)
	Reset(ctx context.Context, guildID string) error
}

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsStore interface {
	Get(ctx context.Context, guildID string) (storage.GuildSettings, error)
	SetStatus(ctx context.Context, guildID, status string) error
	SetKing(ctx context.Context, guildID string, userID *string, submissionID *int64) error
	SetTiebreakerUsers(ctx context.Context, guildID string, pair *string) error
	ResetKothFields(ctx context.Context, guildID string) error
	SetPanelMessage(ctx context.Context, guildID, messageID string) error
	Update(ctx context.Context, guildID string, u storage.GuildSettingsUpdate) (storage.GuildSettings, error)
}

// Lo implementa internal/infra/storage.InventoryRepo
type Inventory interface {
	Count(ctx context.Context, guildID, userID, itemID string) (int, error)
	Use(ctx context.Context, guildID, userID, itemID string) (bool, error)
	Grant(ctx context.Context, guildID, userID, itemID string, qty int) error
}

// Announcer: salidas hacia Discord que el controller necesita en medio de
// una transición (anuncios públicos, roles, limpieza de mensajes, DMs).
// Lo implementa internal/adapters/discord.Announcer; todo best-effort.
type Announcer interface {
	Announce(ctx context.Context, channelID, content string) (messageID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRoleFromAll(ctx context.Context, guildID, roleID string) error
	DirectMessage(ctx context.Context, userID, content string) error
}

// Broadcaster empuja snapshots al widget web. Sin garantía de entrega.
// Lo implementa internal/adapters/webpanel.Hub
type Broadcaster interface {
	Broadcast(guildID string, payload any)
}

package storage

import "time"

// Estados del panel de submissions (una sola máquina por guild;
// 'open/closed' gobiernan la cola regular, 'koth_*' el modo batalla).
const (
	StatusClosed         = "closed"
	StatusOpen           = "open"
	StatusKothClosed     = "koth_closed"
	StatusKothOpen       = "koth_open"
	StatusKothTiebreaker = "koth_tiebreaker"
)

const (
	SubmissionPending   = "pending"
	SubmissionReviewing = "reviewing"
	SubmissionReviewed  = "reviewed"
)

const (
	TypeRegular = "regular"
	TypeKoth    = "koth"
)

type Submission struct {
	ID          int64
	GuildID     string
	UserID      string
	TrackURL    string
	Status      string // pending | reviewing | reviewed
	Type        string // regular | koth
	SubmittedAt time.Time
	ReviewerID  *string
}

type LeaderboardRow struct {
	GuildID string
	UserID  string
	Points  int
	Wins    int
	Losses  int
	Streak  int
}

// GuildSettings es el estado persistido por guild: status de la máquina,
// canales configurados, panel activo y los campos KOTH (rey / tiebreaker).
type GuildSettings struct {
	GuildID              string
	SubmissionStatus     string
	SubmissionsEnabled   bool
	SubmissionChannelID  string
	KothChannelID        string
	ReviewChannelID      string
	PanelMessageID       string
	KothWinnerRoleID     string
	KothKingID           *string
	KothKingSubmissionID *int64
	KothTiebreakerUsers  *string // par de user ids separado por coma
	CreatedAt, UpdatedAt time.Time
}

// Para updates parciales desde /settings set
type GuildSettingsUpdate struct {
	SubmissionChannelID *string
	KothChannelID       *string
	ReviewChannelID     *string
	KothWinnerRoleID    *string
	SubmissionsEnabled  *bool
}

package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

// IDs de acción del panel. El adapter les pone botón; acá solo se decide
// cuáles ofrece cada estado.
const (
	ActionStartRegular     = "sub_start_regular"
	ActionPlayRegular      = "sub_play_regular"
	ActionStopRegular      = "sub_stop_regular"
	ActionStatsRegular     = "sub_stats_regular"
	ActionSwitchToKoth     = "sub_switch_to_koth"
	ActionStartKoth        = "sub_start_koth"
	ActionPlayKoth         = "sub_play_koth"
	ActionStopKoth         = "sub_stop_koth"
	ActionStatsKoth        = "sub_stats_koth"
	ActionSwitchToRegular  = "sub_switch_to_regular"
	ActionCancelTiebreaker = "sub_cancel_tiebreaker"
)

// Tabla explícita estado -> acciones disponibles. Una sola fuente de
// verdad en vez de elegir views por string suelto.
var panelActions = map[string][]string{
	storage.StatusClosed:         {ActionStartRegular, ActionStatsRegular, ActionSwitchToKoth},
	storage.StatusOpen:           {ActionPlayRegular, ActionStopRegular, ActionStatsRegular},
	storage.StatusKothClosed:     {ActionStartKoth, ActionStatsKoth, ActionSwitchToRegular},
	storage.StatusKothOpen:       {ActionPlayKoth, ActionStopKoth, ActionStatsKoth},
	storage.StatusKothTiebreaker: {ActionCancelTiebreaker},
}

// PanelState es el render puro del panel: mismo estado, mismo resultado.
type PanelState struct {
	Status          string
	QueueCount      int
	KingID          string
	TiebreakerUsers []string
	SessionBoard    []SessionEntry // top 5, solo con batalla abierta
	Actions         []string
}

func (s *BattleService) PanelState(ctx context.Context, guildID string) (PanelState, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return PanelState{}, err
	}

	status := st.SubmissionStatus
	if _, ok := panelActions[status]; !ok {
		status = storage.StatusClosed
	}

	ps := PanelState{Status: status, Actions: panelActions[status]}

	subType := storage.TypeRegular
	if strings.HasPrefix(status, "koth") {
		subType = storage.TypeKoth
	}
	if ps.QueueCount, err = s.subs.QueueCount(ctx, guildID, subType); err != nil {
		return PanelState{}, err
	}

	if st.KothKingID != nil {
		ps.KingID = *st.KothKingID
	}
	if status == storage.StatusKothTiebreaker && st.KothTiebreakerUsers != nil {
		for _, uid := range strings.Split(*st.KothTiebreakerUsers, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				ps.TiebreakerUsers = append(ps.TiebreakerUsers, uid)
			}
		}
	}
	if status == storage.StatusKothOpen {
		board := s.sessions.Sorted(guildID)
		if len(board) > 5 {
			board = board[:5]
		}
		ps.SessionBoard = board
	}
	return ps, nil
}

// ---- snapshot para el widget web ----

type WidgetBoardEntry struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

type WidgetRegular struct {
	Queue     int    `json:"queue"`
	Reviewing string `json:"reviewing"`
}

type WidgetKoth struct {
	Queue            int                `json:"queue"`
	King             string             `json:"king"`
	Leaderboard      []WidgetBoardEntry `json:"leaderboard"`
	LeaderboardTitle string             `json:"leaderboard_title"`
}

type WidgetData struct {
	Type    string        `json:"type"`
	Regular WidgetRegular `json:"regular_data"`
	Koth    WidgetKoth    `json:"koth_data"`
}

// WidgetNewSubmission es el evento puntual que el widget anima cuando entra
// un track nuevo; va aparte del snapshot completo.
type WidgetNewSubmission struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// WidgetSnapshot junta colas, rey y top-5 (sesión viva si hay batalla
// abierta con puntos, histórico si no).
func (s *BattleService) WidgetSnapshot(ctx context.Context, guildID string) (WidgetData, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return WidgetData{}, err
	}

	data := WidgetData{Type: "full_update"}

	if data.Regular.Queue, err = s.subs.QueueCount(ctx, guildID, storage.TypeRegular); err != nil {
		return WidgetData{}, err
	}
	if data.Koth.Queue, err = s.subs.QueueCount(ctx, guildID, storage.TypeKoth); err != nil {
		return WidgetData{}, err
	}
	switch uid, err := s.subs.ReviewingUser(ctx, guildID, storage.TypeRegular); {
	case err == nil:
		data.Regular.Reviewing = uid
	case !errors.Is(err, storage.ErrNotFound):
		log.Printf("[widget] reviewing user guild=%s: %v", guildID, err)
	}
	if st.KothKingID != nil {
		data.Koth.King = *st.KothKingID
	}

	data.Koth.LeaderboardTitle = "Leaderboard (All-Time)"
	if st.SubmissionStatus == storage.StatusKothOpen {
		if live := s.sessions.Sorted(guildID); len(live) > 0 {
			data.Koth.LeaderboardTitle = "Leaderboard (Current Battle)"
			for _, e := range live {
				data.Koth.Leaderboard = append(data.Koth.Leaderboard, WidgetBoardEntry{UserID: e.UserID, Points: e.Points})
			}
		}
	}
	if data.Koth.Leaderboard == nil {
		top, err := s.board.Top(ctx, guildID, 5)
		if err != nil {
			return WidgetData{}, err
		}
		for _, row := range top {
			data.Koth.Leaderboard = append(data.Koth.Leaderboard, WidgetBoardEntry{UserID: row.UserID, Points: row.Points})
		}
	}
	if len(data.Koth.Leaderboard) > 5 {
		data.Koth.Leaderboard = data.Koth.Leaderboard[:5]
	}
	return data, nil
}

// broadcast empuja el snapshot completo a los widgets. Best-effort.
func (s *BattleService) broadcast(ctx context.Context, guildID string) {
	if s.bcast == nil {
		return
	}
	data, err := s.WidgetSnapshot(ctx, guildID)
	if err != nil {
		log.Printf("[widget] snapshot guild=%s: %v", guildID, err)
		return
	}
	s.bcast.Broadcast(guildID, data)
}

func (s *BattleService) broadcastNewSubmission(guildID string, a Author) {
	if s.bcast == nil {
		return
	}
	s.bcast.Broadcast(guildID, WidgetNewSubmission{
		Type:      "new_submission",
		Username:  a.Username,
		AvatarURL: a.AvatarURL,
	})
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

const (
	VerdictKing       = "king"
	VerdictChallenger = "challenger"
	VerdictSkip       = "skip"
)

type BattleService struct {
	subs     SubmissionStore
	board    Leaderboard
	settings SettingsStore
	inv      Inventory
	sessions *SessionRegistry
	ann      Announcer
	bcast    Broadcaster
}

func NewBattleService(
	subs SubmissionStore,
	board Leaderboard,
	settings SettingsStore,
	inv Inventory,
	sessions *SessionRegistry,
	ann Announcer,
	bcast Broadcaster,
) *BattleService {
	return &BattleService{
		subs:     subs,
		board:    board,
		settings: settings,
		inv:      inv,
		sessions: sessions,
		ann:      ann,
		bcast:    bcast,
	}
}

// PlayOutcome: o bien se coronó un rey sin pelea (NewKing) o quedó armada
// una ronda rey-vs-retador (Battle). Nil cuando la cola estaba vacía.
type PlayOutcome struct {
	NewKing *Duelist
	Battle  *Battle
}

// StartKoth: koth_closed -> koth_open. Limpia la sesión anterior, saca el
// rol de ganador a quien lo tenga y abre el canal de entregas.
func (s *BattleService) StartKoth(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusKothClosed {
		return "ℹ️ No se puede arrancar una batalla en este estado.", nil
	}

	s.sessions.Drop(guildID)

	if st.KothWinnerRoleID != "" {
		if err := s.ann.RemoveRoleFromAll(ctx, guildID, st.KothWinnerRoleID); err != nil {
			log.Printf("[koth.start] remove winner role guild=%s: %v", guildID, err)
		}
	}

	if err := s.settings.SetStatus(ctx, guildID, storage.StatusKothOpen); err != nil {
		return "", err
	}

	if st.KothChannelID != "" {
		if _, err := s.ann.Announce(ctx, st.KothChannelID,
			"📢 @everyone ¡Entregas de **King of the Hill** ABIERTAS! Mandá tu mejor track para entrar a la batalla.\n📌 **SOLO MP3/WAV | NADA DE LINKS**"); err != nil {
			log.Printf("[koth.start] announce guild=%s: %v", guildID, err)
		}
	}

	s.broadcast(ctx, guildID)
	return "✅ ¡Arrancó el King of the Hill!", nil
}

// PlayNext: sin rey, corona al pending más viejo; con rey, arma la ronda
// contra el siguiente retador. La cola vacía es no-op con aviso.
func (s *BattleService) PlayNext(ctx context.Context, guildID, moderatorID string) (*PlayOutcome, string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return nil, "", err
	}
	if st.SubmissionStatus != storage.StatusKothOpen {
		return nil, "ℹ️ La batalla no está abierta.", nil
	}
	if s.sessions.CurrentBattle(guildID) != nil {
		return nil, "ℹ️ Ya hay una ronda en curso: votá o salteala primero.", nil
	}

	next, err := s.subs.DequeueNext(ctx, guildID, storage.TypeKoth)
	if errors.Is(err, storage.ErrNotFound) {
		if st.KothKingID == nil {
			return nil, "La cola KOTH está vacía: hace falta al menos un retador.", nil
		}
		return nil, "¡No quedan retadores en la cola!", nil
	}
	if err != nil {
		return nil, "", err
	}

	if err := s.subs.Mark(ctx, next.ID, storage.SubmissionReviewing, &moderatorID); err != nil {
		return nil, "", err
	}

	// Primer play de la sesión: corona sin pelea.
	if st.KothKingID == nil {
		if err := s.settings.SetKing(ctx, guildID, &next.UserID, &next.ID); err != nil {
			return nil, "", err
		}
		s.broadcast(ctx, guildID)
		return &PlayOutcome{NewKing: &Duelist{UserID: next.UserID, SubmissionID: next.ID, TrackURL: next.TrackURL}}, "", nil
	}

	kingURL := "(track no encontrado)"
	if st.KothKingSubmissionID != nil {
		if ks, err := s.subs.Get(ctx, *st.KothKingSubmissionID); err == nil {
			kingURL = ks.TrackURL
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, "", err
		}
	}

	b := &Battle{
		King:       Duelist{UserID: *st.KothKingID, SubmissionID: derefInt64(st.KothKingSubmissionID), TrackURL: kingURL},
		Challenger: Duelist{UserID: next.UserID, SubmissionID: next.ID, TrackURL: next.TrackURL},
	}
	s.sessions.SetBattle(guildID, b)
	return &PlayOutcome{Battle: b}, "", nil
}

// Judge resuelve la ronda en curso. skip: ambas reviewed, sin puntos, el rey
// sigue. king/challenger: ronda al histórico + sesión, el ganador se queda
// (o se lleva) la corona. En tiebreaker el veredicto finaliza la batalla.
func (s *BattleService) Judge(ctx context.Context, guildID, moderatorID, verdict string) (string, error) {
	b := s.sessions.CurrentBattle(guildID)
	if b == nil {
		return "ℹ️ No hay una ronda en curso.", nil
	}

	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}

	if verdict == VerdictSkip {
		if b.Tiebreaker {
			return "ℹ️ El duelo final no se puede saltear.", nil
		}
		if err := s.subs.Mark(ctx, b.King.SubmissionID, storage.SubmissionReviewed, &moderatorID); err != nil {
			return "", err
		}
		if err := s.subs.Mark(ctx, b.Challenger.SubmissionID, storage.SubmissionReviewed, &moderatorID); err != nil {
			return "", err
		}
		s.sessions.ClearBattle(guildID)
		s.announceTracked(ctx, guildID, st.ReviewChannelID,
			fmt.Sprintf("⏭️ Ronda salteada por <@%s>. Nadie suma puntos.", moderatorID))
		s.broadcast(ctx, guildID)
		return "✅ Ronda salteada.", nil
	}

	var winner, loser Duelist
	switch verdict {
	case VerdictKing:
		winner, loser = b.King, b.Challenger
	case VerdictChallenger:
		winner, loser = b.Challenger, b.King
	default:
		return "", fmt.Errorf("veredicto inválido %q", verdict)
	}

	if b.Tiebreaker {
		s.sessions.ClearBattle(guildID)
		return s.finalize(ctx, guildID, &winner.UserID)
	}

	if err := s.board.RecordBattle(ctx, guildID, winner.UserID, loser.UserID); err != nil {
		return "", err
	}
	s.sessions.RecordRoundWin(guildID, winner.UserID)

	if err := s.subs.Mark(ctx, b.King.SubmissionID, storage.SubmissionReviewed, &moderatorID); err != nil {
		return "", err
	}
	if err := s.subs.Mark(ctx, b.Challenger.SubmissionID, storage.SubmissionReviewed, &moderatorID); err != nil {
		return "", err
	}
	if err := s.settings.SetKing(ctx, guildID, &winner.UserID, &winner.SubmissionID); err != nil {
		return "", err
	}
	s.sessions.ClearBattle(guildID)

	s.announceTracked(ctx, guildID, st.ReviewChannelID,
		fmt.Sprintf("👑 <@%s> gana la ronda y se queda con la corona!", winner.UserID))
	s.broadcast(ctx, guildID)
	return "✅ Ronda registrada.", nil
}

// StopKoth: si los dos primeros del scoreboard empatan con puntos positivos
// va a tiebreaker; si no, finaliza con el mejor puntaje (o el rey reinante
// si nadie sumó, o sin ganador si tampoco hay rey).
func (s *BattleService) StopKoth(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusKothOpen {
		return "ℹ️ No hay batalla abierta para frenar.", nil
	}
	if s.sessions.CurrentBattle(guildID) != nil {
		return "ℹ️ Hay una ronda sin resolver; votá o salteala antes de frenar.", nil
	}

	sorted := s.sessions.Sorted(guildID)
	isTie := len(sorted) > 1 && sorted[0].Points > 0 && sorted[0].Points == sorted[1].Points

	if isTie {
		pair := sorted[0].UserID + "," + sorted[1].UserID
		if err := s.settings.SetTiebreakerUsers(ctx, guildID, &pair); err != nil {
			return "", err
		}
		s.sessions.ResetTiebreaker(guildID)
		if err := s.settings.SetStatus(ctx, guildID, storage.StatusKothTiebreaker); err != nil {
			return "", err
		}
		if st.KothChannelID != "" {
			if _, err := s.ann.Announce(ctx, st.KothChannelID,
				fmt.Sprintf("**⚔️ ¡TIEBREAKER! ⚔️**\n<@%s> y <@%s>, manden UN track final cada uno.", sorted[0].UserID, sorted[1].UserID)); err != nil {
				log.Printf("[koth.stop] announce tiebreaker guild=%s: %v", guildID, err)
			}
		}
		s.broadcast(ctx, guildID)
		return "✅ Empate en la cima: arrancó el tiebreaker.", nil
	}

	var winner *string
	if len(sorted) > 0 {
		winner = &sorted[0].UserID
	} else {
		winner = st.KothKingID
	}
	return s.finalize(ctx, guildID, winner)
}

// CancelTiebreaker cierra el duelo administrativamente, sin ganador.
func (s *BattleService) CancelTiebreaker(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusKothTiebreaker {
		return "ℹ️ No hay tiebreaker activo.", nil
	}
	return s.finalize(ctx, guildID, nil)
}

// finalize siempre deja el guild en koth_closed con los campos KOTH en null
// y el estado efímero descartado, haya ganador o no. Rol y anuncios son
// best-effort: si fallan, la batalla cierra igual.
func (s *BattleService) finalize(ctx context.Context, guildID string, winnerID *string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}

	if st.ReviewChannelID != "" {
		for _, msgID := range s.sessions.PopMessages(guildID) {
			if err := s.ann.DeleteMessage(ctx, st.ReviewChannelID, msgID); err != nil {
				log.Printf("[koth.finalize] delete msg=%s guild=%s: %v", msgID, guildID, err)
			}
		}
	}

	summary := s.composeSummary(guildID, winnerID)

	if winnerID != nil && st.KothWinnerRoleID != "" {
		if err := s.ann.GrantRole(ctx, guildID, *winnerID, st.KothWinnerRoleID); err != nil {
			log.Printf("[koth.finalize] grant role guild=%s user=%s: %v", guildID, *winnerID, err)
		}
	}

	if st.KothChannelID != "" {
		if _, err := s.ann.Announce(ctx, st.KothChannelID, summary); err != nil {
			log.Printf("[koth.finalize] announce results guild=%s: %v", guildID, err)
		}
	}

	if _, err := s.subs.ClearUnreviewed(ctx, guildID, storage.TypeKoth); err != nil {
		return "", err
	}
	if err := s.settings.ResetKothFields(ctx, guildID); err != nil {
		return "", err
	}
	s.sessions.Drop(guildID)

	s.broadcast(ctx, guildID)
	return "✅ Batalla KOTH cerrada. Resultados publicados.", nil
}

func (s *BattleService) composeSummary(guildID string, winnerID *string) string {
	sorted := s.sessions.Sorted(guildID)

	var b strings.Builder
	b.WriteString("🏆 **Resultados del King of the Hill** 🏆\n")
	if winnerID != nil {
		fmt.Fprintf(&b, "Felicitaciones al ganador de la batalla, <@%s>!\n", *winnerID)
	}
	b.WriteString("\n**Scoreboard final:**\n")
	if len(sorted) == 0 {
		b.WriteString("Nadie sumó puntos en esta batalla.")
		return b.String()
	}
	for i, e := range sorted {
		fmt.Fprintf(&b, "`%d.` <@%s>: `%d` pts (`%d` wins)\n", i+1, e.UserID, e.Points, e.Wins)
	}
	return b.String()
}

// AdjustPoints: ajuste manual de un admin. scope "battle" toca solo la
// sesión en memoria; "leaderboard" toca el histórico sin wins/losses.
func (s *BattleService) AdjustPoints(ctx context.Context, guildID, userID, scope string, delta int) (string, error) {
	switch scope {
	case "battle":
		s.sessions.AddPoints(guildID, userID, delta)
	case "leaderboard":
		if err := s.board.Adjust(ctx, guildID, userID, delta); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("scope inválido %q", scope)
	}
	s.broadcast(ctx, guildID)
	if delta >= 0 {
		return fmt.Sprintf("✅ Sumé **%d** punto(s) de %s a <@%s>.", delta, scope, userID), nil
	}
	return fmt.Sprintf("✅ Resté **%d** punto(s) de %s a <@%s>.", -delta, scope, userID), nil
}

// ResetLeaderboard arrasa el histórico del guild. Solo admins, no hay undo.
func (s *BattleService) ResetLeaderboard(ctx context.Context, guildID string) (string, error) {
	if err := s.board.Reset(ctx, guildID); err != nil {
		return "", err
	}
	s.broadcast(ctx, guildID)
	return "✅ Leaderboard histórico reseteado.", nil
}

func (s *BattleService) KothStats(ctx context.Context, guildID string) (string, error) {
	top, err := s.board.Top(ctx, guildID, 10)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "Todavía no hay estadísticas de KOTH.", nil
	}
	var b strings.Builder
	b.WriteString("⚔️ **KOTH Leaderboard (histórico)**\n\n")
	for i, row := range top {
		fmt.Fprintf(&b, "`%d.` <@%s>: `%d` pts (**W/L:** `%d/%d`, **Racha:** `%d`)\n",
			i+1, row.UserID, row.Points, row.Wins, row.Losses, row.Streak)
	}
	return b.String(), nil
}

func (s *BattleService) announceTracked(ctx context.Context, guildID, channelID, content string) {
	if channelID == "" {
		return
	}
	msgID, err := s.ann.Announce(ctx, channelID, content)
	if err != nil {
		log.Printf("[koth] announce guild=%s: %v", guildID, err)
		return
	}
	s.sessions.TrackMessage(guildID, msgID)
}

// TrackBattleMessage registra un mensaje que el adapter publicó y que hay
// que limpiar al cerrar la batalla (embed de rey nuevo, etc).
func (s *BattleService) TrackBattleMessage(guildID, messageID string) {
	s.sessions.TrackMessage(guildID, messageID)
}

// Settings expone la config del guild al adapter (canales, panel, etc).
func (s *BattleService) Settings(ctx context.Context, guildID string) (storage.GuildSettings, error) {
	return s.settings.Get(ctx, guildID)
}

// ConfigureSettings aplica un patch parcial de config y devuelve el estado
// resultante en texto.
func (s *BattleService) ConfigureSettings(ctx context.Context, guildID string, u storage.GuildSettingsUpdate) (string, error) {
	st, err := s.settings.Update(ctx, guildID, u)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("✅ Configuración actualizada.\n")
	line := func(label, channelID string) {
		if channelID == "" {
			fmt.Fprintf(&b, "%s: `sin configurar`\n", label)
			return
		}
		fmt.Fprintf(&b, "%s: <#%s>\n", label, channelID)
	}
	line("Canal de submissions", st.SubmissionChannelID)
	line("Canal KOTH", st.KothChannelID)
	line("Canal de review", st.ReviewChannelID)
	if st.KothWinnerRoleID != "" {
		fmt.Fprintf(&b, "Rol de ganador: <@&%s>\n", st.KothWinnerRoleID)
	}
	return b.String(), nil
}

// SavePanelMessage persiste el id del mensaje-panel recién publicado.
func (s *BattleService) SavePanelMessage(ctx context.Context, guildID, messageID string) error {
	return s.settings.SetPanelMessage(ctx, guildID, messageID)
}

// DirectMessage manda un DM best-effort via el announcer.
func (s *BattleService) DirectMessage(ctx context.Context, userID, content string) error {
	return s.ann.DirectMessage(ctx, userID, content)
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

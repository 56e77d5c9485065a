package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

// Máquina paralela de la cola regular. Comparte el campo submission_status
// con el modo KOTH pero nunca están activos a la vez.

func (s *BattleService) StartRegular(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusClosed {
		return "ℹ️ Las submissions no se pueden abrir en este estado.", nil
	}
	s.sessions.ResetRegularReviewed(guildID)
	if err := s.settings.SetStatus(ctx, guildID, storage.StatusOpen); err != nil {
		return "", err
	}
	if st.SubmissionChannelID != "" {
		if _, err := s.ann.Announce(ctx, st.SubmissionChannelID,
			"📢 @everyone ¡Submissions **ABIERTAS**! Mandá tus audios acá.\n📌 **SOLO MP3/WAV | NADA DE LINKS**"); err != nil {
			log.Printf("[regular.start] announce guild=%s: %v", guildID, err)
		}
	}
	s.broadcast(ctx, guildID)
	return "✅ Submissions abiertas.", nil
}

func (s *BattleService) StopRegular(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusOpen {
		return "ℹ️ Las submissions no están abiertas.", nil
	}
	reviewed := s.sessions.RegularReviewed(guildID)
	if _, err := s.subs.ClearUnreviewed(ctx, guildID, storage.TypeRegular); err != nil {
		return "", err
	}
	if err := s.settings.SetStatus(ctx, guildID, storage.StatusClosed); err != nil {
		return "", err
	}
	if st.SubmissionChannelID != "" {
		if _, err := s.ann.Announce(ctx, st.SubmissionChannelID,
			"Submissions **CERRADAS**. ¡Gracias a todos los que mandaron sus tracks!"); err != nil {
			log.Printf("[regular.stop] announce guild=%s: %v", guildID, err)
		}
	}
	s.broadcast(ctx, guildID)
	return fmt.Sprintf("✅ Sesión cerrada. Se revisaron **%d** tracks en esta sesión.", reviewed), nil
}

// ReviewItem es el próximo track a evaluar en modo regular.
type ReviewItem struct {
	SubmissionID int64
	UserID       string
	TrackURL     string
}

func (s *BattleService) PlayRegular(ctx context.Context, guildID, moderatorID string) (*ReviewItem, string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return nil, "", err
	}
	if st.SubmissionStatus != storage.StatusOpen {
		return nil, "ℹ️ Las submissions no están abiertas.", nil
	}
	next, err := s.subs.DequeueNext(ctx, guildID, storage.TypeRegular)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "¡La cola está vacía!", nil
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.subs.Mark(ctx, next.ID, storage.SubmissionReviewing, &moderatorID); err != nil {
		return nil, "", err
	}
	return &ReviewItem{SubmissionID: next.ID, UserID: next.UserID, TrackURL: next.TrackURL}, "", nil
}

func (s *BattleService) MarkReviewed(ctx context.Context, guildID, moderatorID string, submissionID int64) (string, error) {
	if err := s.subs.Mark(ctx, submissionID, storage.SubmissionReviewed, &moderatorID); err != nil {
		return "", err
	}
	s.sessions.IncRegularReviewed(guildID)
	s.broadcast(ctx, guildID)
	return "✅ Track marcado como revisado.", nil
}

func (s *BattleService) SwitchToKoth(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusClosed {
		return "ℹ️ Cerrá las submissions antes de cambiar de modo.", nil
	}
	if err := s.settings.SetStatus(ctx, guildID, storage.StatusKothClosed); err != nil {
		return "", err
	}
	return "✅ Modo King of the Hill activado.", nil
}

func (s *BattleService) SwitchToRegular(ctx context.Context, guildID string) (string, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.SubmissionStatus != storage.StatusKothClosed {
		return "ℹ️ Frená la batalla antes de cambiar de modo.", nil
	}
	if err := s.settings.SetStatus(ctx, guildID, storage.StatusClosed); err != nil {
		return "", err
	}
	return "✅ De vuelta en modo regular.", nil
}

func (s *BattleService) RegularStats(ctx context.Context, guildID string) (string, error) {
	n, err := s.subs.ReviewedCount(ctx, guildID, storage.TypeRegular)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("📊 Se revisaron **%d** tracks en total en este server (histórico).", n), nil
}

// GrantPass deposita priority passes en el inventario de un user (comando
// admin; el shop del server es quien los vende normalmente).
func (s *BattleService) GrantPass(ctx context.Context, guildID, userID string, qty int) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("cantidad inválida %d", qty)
	}
	if err := s.inv.Grant(ctx, guildID, userID, storage.ItemPriorityPass, qty); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Le di **%d** Priority Pass a <@%s>.", qty, userID), nil
}

// UsePass consume un priority pass del inventario y manda el último pending
// del user al frente de la cola.
func (s *BattleService) UsePass(ctx context.Context, guildID, userID string) (string, error) {
	n, err := s.inv.Count(ctx, guildID, userID, storage.ItemPriorityPass)
	if err != nil {
		return "", err
	}
	if n <= 0 {
		return "No tenés ningún Priority Pass. Podés comprar uno en el `/shop`.", nil
	}
	subID, err := s.subs.LatestPending(ctx, guildID, userID, storage.TypeRegular)
	if errors.Is(err, storage.ErrNotFound) {
		return "No tenés ningún track pendiente en la cola regular. Mandá uno primero y después usá el pass.", nil
	}
	if err != nil {
		return "", err
	}
	ok, err := s.inv.Use(ctx, guildID, userID, storage.ItemPriorityPass)
	if err != nil {
		return "", err
	}
	if !ok {
		return "No tenés ningún Priority Pass. Podés comprar uno en el `/shop`.", nil
	}
	if err := s.subs.Prioritize(ctx, subID); err != nil {
		return "", err
	}
	log.Printf("[pass] user=%s usó priority pass sobre submission=%d", userID, subID)
	return "✅ ¡Listo! Tu track pasó al frente de la cola.", nil
}

package service

import (
	"context"
	"log"
	"strings"

	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

// Attachment es lo mínimo que el observer de mensajes necesita pasarnos.
type Attachment struct {
	URL         string
	ContentType string
}

// Author identifica al que mandó el track; nombre y avatar alimentan el
// evento new_submission del widget.
type Author struct {
	ID        string
	Username  string
	AvatarURL string
}

// IntakeOutcome le dice al adapter qué hacer con el mensaje del entrante:
// qué reacción poner, si mandar DM, si el panel quedó sucio y, en el caso
// del tiebreaker completo, el duelo final listo para publicar.
type IntakeOutcome struct {
	React       string
	DM          string
	PanelDirty  bool
	FinalBattle *Battle
}

// HandleMessage procesa un mensaje del canal de entregas según el estado:
// open -> cola regular (primer track del user se prioriza), koth_open ->
// cola KOTH + stats de sesión, koth_tiebreaker -> entrega del duelista
// (solo cuenta la primera; las extra se ignoran sin rechazo explícito).
func (s *BattleService) HandleMessage(ctx context.Context, guildID, channelID string, author Author, atts []Attachment) (*IntakeOutcome, error) {
	st, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !st.SubmissionsEnabled {
		return nil, nil
	}

	track, ok := firstAudio(atts)
	if !ok {
		return nil, nil
	}

	switch {
	case st.SubmissionStatus == storage.StatusOpen && channelID == st.SubmissionChannelID:
		return s.intakeRegular(ctx, guildID, author, track)

	case st.SubmissionStatus == storage.StatusKothOpen && channelID == st.KothChannelID:
		return s.intakeKoth(ctx, guildID, author, track)

	case st.SubmissionStatus == storage.StatusKothTiebreaker && channelID == st.KothChannelID:
		return s.intakeTiebreaker(ctx, st, author.ID, track)
	}
	return nil, nil
}

func (s *BattleService) intakeRegular(ctx context.Context, guildID string, author Author, trackURL string) (*IntakeOutcome, error) {
	subID, err := s.subs.Enqueue(ctx, guildID, author.ID, trackURL, storage.TypeRegular)
	if err != nil {
		return nil, err
	}
	out := &IntakeOutcome{React: "✅", PanelDirty: true}

	// Primera submission del user en este server: pasa al frente.
	total, err := s.subs.UserCount(ctx, guildID, author.ID, storage.TypeRegular)
	if err != nil {
		log.Printf("[intake] user count guild=%s user=%s: %v", guildID, author.ID, err)
	} else if total == 1 {
		if err := s.subs.Prioritize(ctx, subID); err != nil {
			return nil, err
		}
		log.Printf("[intake] primera submission de user=%s priorizada (id=%d)", author.ID, subID)
		out.DM = "✅ Como es tu primera vez mandando un track en este server, ¡te movimos al frente de la cola!"
	}

	s.broadcastNewSubmission(guildID, author)
	s.broadcast(ctx, guildID)
	return out, nil
}

func (s *BattleService) intakeKoth(ctx context.Context, guildID string, author Author, trackURL string) (*IntakeOutcome, error) {
	if _, err := s.subs.Enqueue(ctx, guildID, author.ID, trackURL, storage.TypeKoth); err != nil {
		return nil, err
	}
	s.sessions.RecordSubmission(guildID, author.ID)
	s.broadcastNewSubmission(guildID, author)
	s.broadcast(ctx, guildID)
	return &IntakeOutcome{React: "✅", PanelDirty: true}, nil
}

func (s *BattleService) intakeTiebreaker(ctx context.Context, st storage.GuildSettings, authorID, trackURL string) (*IntakeOutcome, error) {
	guildID := st.GuildID
	if st.KothTiebreakerUsers == nil {
		return nil, nil
	}
	if !containsID(*st.KothTiebreakerUsers, authorID) {
		return nil, nil
	}

	accepted, duelists := s.sessions.TiebreakerSubmit(guildID, authorID, trackURL)
	if !accepted {
		return nil, nil
	}
	out := &IntakeOutcome{React: "⚔️"}
	if duelists != nil {
		// Los dos entregaron: un único duelo decide la batalla.
		out.FinalBattle = &Battle{King: duelists[0], Challenger: duelists[1], Tiebreaker: true}
		s.sessions.SetBattle(guildID, out.FinalBattle)
	}
	return out, nil
}

func firstAudio(atts []Attachment) (string, bool) {
	for _, a := range atts {
		if strings.HasPrefix(a.ContentType, "audio/") {
			return a.URL, true
		}
	}
	return "", false
}

func containsID(pair, id string) bool {
	for _, p := range strings.Split(pair, ",") {
		if strings.TrimSpace(p) == id {
			return true
		}
	}
	return false
}

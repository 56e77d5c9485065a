package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/xcg-koth-bot/internal/app/service"
)

// postNewKing anuncia la coronación del primer rey de la sesión.
func (r *Router) postNewKing(ctx context.Context, guildID, channelID string, king *service.Duelist) {
	embed := &discordgo.MessageEmbed{
		Title:       "👑 ¡Tenemos un nuevo Rey!",
		Description: fmt.Sprintf("<@%s> toma el trono sin pelear.\n\n**Track:** %s", king.UserID, king.TrackURL),
		Color:       colorGold,
	}
	msg, err := r.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("[battle] post new king guild=%s: %v", guildID, err)
		return
	}
	r.svc.TrackBattleMessage(guildID, msg.ID)
}

// postBattle publica la ronda rey-vs-retador con los botones de veredicto.
func (r *Router) postBattle(ctx context.Context, guildID, channelID string, b *service.Battle) {
	title := "⚔️ ¡Batalla por el trono!"
	if b.Tiebreaker {
		title = "🔥 ¡DUELO FINAL DE DESEMPATE!"
	}
	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: colorError,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "👑 Rey", Value: fmt.Sprintf("<@%s>\n%s", b.King.UserID, b.King.TrackURL)},
			{Name: "🗡️ Retador", Value: fmt.Sprintf("<@%s>\n%s", b.Challenger.UserID, b.Challenger.TrackURL)},
		},
	}

	buttons := []discordgo.MessageComponent{
		discordgo.Button{Style: discordgo.SuccessButton, Label: "Gana el Rey", CustomID: "koth_vote_king"},
		discordgo.Button{Style: discordgo.PrimaryButton, Label: "Gana el Retador", CustomID: "koth_vote_challenger"},
	}
	if !b.Tiebreaker {
		buttons = append(buttons, discordgo.Button{Style: discordgo.SecondaryButton, Label: "⏭️ Saltar", CustomID: "koth_skip"})
	}

	msg, err := r.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("[battle] post battle guild=%s: %v", guildID, err)
		return
	}
	r.svc.TrackBattleMessage(guildID, msg.ID)
}

// postFinalBattle arranca el duelo de desempate apenas llega la segunda
// entrega. Va al canal de review, donde están los mods.
func (r *Router) postFinalBattle(ctx context.Context, guildID string, b *service.Battle) {
	st, err := r.svc.Settings(ctx, guildID)
	if err != nil || st.ReviewChannelID == "" {
		log.Printf("[battle] final battle sin canal de review guild=%s: %v", guildID, err)
		return
	}
	r.postBattle(ctx, guildID, st.ReviewChannelID, b)
	r.panel.refresh(guildID)
}

// postReviewItem publica el próximo track de la cola regular con su botón
// de "reviewed".
func (r *Router) postReviewItem(ctx context.Context, ic *discordgo.InteractionCreate, item *service.ReviewItem) {
	embed := &discordgo.MessageEmbed{
		Title:       "🎧 Próximo track",
		Description: fmt.Sprintf("**De:** <@%s>\n**Track:** %s", item.UserID, item.TrackURL),
		Color:       colorInfo,
	}
	row := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Style:    discordgo.SuccessButton,
			Label:    "✅ Reviewed",
			CustomID: fmt.Sprintf("sub_mark_reviewed:%d", item.SubmissionID),
		},
	}}
	if _, err := r.s.ChannelMessageSendComplex(ic.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{row},
	}, discordgo.WithContext(ctx)); err != nil {
		log.Printf("[review] post item guild=%s: %v", ic.GuildID, err)
		ReplyEphemeral(r.s, ic, "⚠️ No pude publicar el track.")
		return
	}
	ReplyEphemeral(r.s, ic, "▶️ Track publicado para review.")
}

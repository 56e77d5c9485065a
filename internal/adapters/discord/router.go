package discord

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/xcg-koth-bot/internal/app/service"
	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

type Router struct {
	s       *discordgo.Session
	guildID string

	svc          *service.BattleService
	adminRoleIDs []string
	modRoleIDs   []string

	clickLimiter *userLimiter
	panel        *panelRefresher
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	svc *service.BattleService,
	adminRoleIDs, modRoleIDs []string,
) *Router {
	r := &Router{
		s:            s,
		guildID:      guildID,
		svc:          svc,
		adminRoleIDs: adminRoleIDs,
		modRoleIDs:   modRoleIDs,
		clickLimiter: newUserLimiter(1200 * time.Millisecond),
	}
	r.panel = newPanelRefresher(r)
	return r
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

// RefreshPanel agenda un repintado del panel del guild (para re-syncs
// periódicos desde main).
func (r *Router) RefreshPanel(guildID string) {
	r.panel.refresh(guildID)
}

func (r *Router) Handlers() {
	r.s.AddHandler(r.handleSlash)
	r.s.AddHandler(r.handleComponent)
	r.s.AddHandler(r.handleMessage)
}

func (r *Router) handleSlash(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := ic.ApplicationCommandData()
	log.Printf("slash: /%s by=%s guild=%s", data.Name, ic.Member.User.ID, ic.GuildID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in slash /%s: %v", data.Name, rec)
			ReplyEphemeral(s, ic, "⚠️ Ocurrió un error inesperado.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch data.Name {
	case "koth":
		r.handleKothCommand(ctx, s, ic)

	case "setup_submission_panel":
		if !r.requireAdmin(s, ic) {
			return
		}
		msg, err := r.publishPanel(ctx, ic.GuildID)
		if err != nil {
			msg = "⚠️ No pude publicar el panel: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case "subsettings":
		if !r.requireAdmin(s, ic) {
			return
		}
		var u storage.GuildSettingsUpdate
		if ch, ok := optChannel(ic, "submission_channel"); ok {
			u.SubmissionChannelID = &ch
		}
		if ch, ok := optChannel(ic, "koth_channel"); ok {
			u.KothChannelID = &ch
		}
		if ch, ok := optChannel(ic, "review_channel"); ok {
			u.ReviewChannelID = &ch
		}
		if role, ok := optRole(ic, "winner_role"); ok {
			u.KothWinnerRoleID = &role
		}
		if on, ok := optBool(ic, "enabled"); ok {
			u.SubmissionsEnabled = &on
		}
		msg, err := r.svc.ConfigureSettings(ctx, ic.GuildID, u)
		if err != nil {
			msg = "⚠️ No pude guardar la configuración: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case "grantpass":
		if !r.requireAdmin(s, ic) {
			return
		}
		member, ok := optUser(ic, "member")
		if !ok {
			ReplyEphemeral(s, ic, "⚠️ Faltan argumentos.")
			return
		}
		qty, set := optInt(ic, "qty")
		if !set {
			qty = 1
		}
		msg, err := r.svc.GrantPass(ctx, ic.GuildID, member, qty)
		if err != nil {
			msg = "⚠️ No pude dar el pass: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case "use":
		sub, _ := subcmdName(ic)
		if sub != "pass" {
			ReplyEphemeral(s, ic, "Usá `/use pass`.")
			return
		}
		msg, err := r.svc.UsePass(ctx, ic.GuildID, ic.Member.User.ID)
		if err != nil {
			msg = "⚠️ No se pudo usar el pass: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)
		r.panel.refresh(ic.GuildID)
	}
}

func (r *Router) handleKothCommand(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Usá `/koth addpoint`, `/koth removepoint` o `/koth stats`.")
		return
	}

	switch sub {
	case "addpoint", "removepoint":
		if !r.requireAdmin(s, ic) {
			return
		}
		member, _ := optUser(ic, "member")
		scope, _ := optStr(ic, "scope")
		points, set := optInt(ic, "points")
		if !set {
			points = 1
		}
		if member == "" || scope == "" {
			ReplyEphemeral(s, ic, "⚠️ Faltan argumentos.")
			return
		}
		if sub == "removepoint" {
			points = -points
		}
		msg, err := r.svc.AdjustPoints(ctx, ic.GuildID, member, scope, points)
		if err != nil {
			msg = "⚠️ No pude ajustar puntos: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)
		r.panel.refresh(ic.GuildID)

	case "stats":
		if !r.requireMod(s, ic) {
			return
		}
		msg, err := r.svc.KothStats(ctx, ic.GuildID)
		if err != nil {
			msg = "⚠️ No pude leer el leaderboard: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case "resetstats":
		if !r.requireAdmin(s, ic) {
			return
		}
		msg, err := r.svc.ResetLeaderboard(ctx, ic.GuildID)
		if err != nil {
			msg = "⚠️ No pude resetear el leaderboard: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)
		r.panel.refresh(ic.GuildID)
	}
}

func (r *Router) handleComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := ic.MessageComponentData()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in component %s: %v", data.CustomID, rec)
			ReplyEphemeral(s, ic, "⚠️ Ocurrió un error inesperado.")
		}
	}()

	if !r.clickLimiter.Allow(ic.Member.User.ID) {
		_ = SendEphemeral(s, ic, "⏳ Esperá un segundo…")
		return
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	stop := step("component." + data.CustomID)
	defer stop()

	// botones del item de review llevan el id de la submission en el custom_id
	if subID, ok := strings.CutPrefix(data.CustomID, "sub_mark_reviewed:"); ok {
		r.handleMarkReviewed(ctx, s, ic, subID)
		return
	}

	switch data.CustomID {

	// ---- panel: modo regular ----
	case service.ActionStartRegular:
		r.adminAction(ctx, s, ic, r.svc.StartRegular)
	case service.ActionStopRegular:
		r.adminAction(ctx, s, ic, r.svc.StopRegular)
	case service.ActionSwitchToKoth:
		r.adminAction(ctx, s, ic, r.svc.SwitchToKoth)
	case service.ActionSwitchToRegular:
		r.adminAction(ctx, s, ic, r.svc.SwitchToRegular)
	case service.ActionStatsRegular:
		if !r.requireMod(s, ic) {
			return
		}
		msg, err := r.svc.RegularStats(ctx, ic.GuildID)
		if err != nil {
			msg = "⚠️ No pude leer las estadísticas: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case service.ActionPlayRegular:
		if !r.requireMod(s, ic) {
			return
		}
		item, msg, err := r.svc.PlayRegular(ctx, ic.GuildID, ic.Member.User.ID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+err.Error())
			return
		}
		if item == nil {
			ReplyEphemeral(s, ic, msg)
			return
		}
		r.postReviewItem(ctx, ic, item)
		r.panel.refresh(ic.GuildID)

	// ---- panel: modo KOTH ----
	case service.ActionStartKoth:
		r.adminAction(ctx, s, ic, r.svc.StartKoth)
	case service.ActionStopKoth:
		r.adminAction(ctx, s, ic, r.svc.StopKoth)
	case service.ActionCancelTiebreaker:
		r.adminAction(ctx, s, ic, r.svc.CancelTiebreaker)
	case service.ActionStatsKoth:
		if !r.requireMod(s, ic) {
			return
		}
		msg, err := r.svc.KothStats(ctx, ic.GuildID)
		if err != nil {
			msg = "⚠️ No pude leer el leaderboard: " + err.Error()
		}
		ReplyEphemeral(s, ic, msg)

	case service.ActionPlayKoth:
		if !r.requireMod(s, ic) {
			return
		}
		out, msg, err := r.svc.PlayNext(ctx, ic.GuildID, ic.Member.User.ID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+err.Error())
			return
		}
		if out == nil {
			ReplyEphemeral(s, ic, msg)
			return
		}
		if out.NewKing != nil {
			r.postNewKing(ctx, ic.GuildID, ic.ChannelID, out.NewKing)
			ReplyEphemeral(s, ic, "👑 Tenemos rey. ¡Dale play de nuevo para la primera batalla!")
		} else if out.Battle != nil {
			r.postBattle(ctx, ic.GuildID, ic.ChannelID, out.Battle)
			ReplyEphemeral(s, ic, "⚔️ Batalla publicada.")
		}
		r.panel.refresh(ic.GuildID)

	// ---- mensaje de batalla ----
	case "koth_vote_king", "koth_vote_challenger", "koth_skip":
		if !r.requireMod(s, ic) {
			return
		}
		verdict := service.VerdictSkip
		switch data.CustomID {
		case "koth_vote_king":
			verdict = service.VerdictKing
		case "koth_vote_challenger":
			verdict = service.VerdictChallenger
		}
		msg, err := r.svc.Judge(ctx, ic.GuildID, ic.Member.User.ID, verdict)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ "+err.Error())
			return
		}
		// la ronda quedó resuelta: el mensaje de votación se borra
		if strings.HasPrefix(msg, "✅") {
			if err := s.ChannelMessageDelete(ic.ChannelID, ic.Message.ID, discordgo.WithContext(ctx)); err != nil {
				log.Printf("[battle] delete vote msg: %v", err)
			}
		}
		ReplyEphemeral(s, ic, msg)
		r.panel.refresh(ic.GuildID)
	}
}

func (r *Router) handleMarkReviewed(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, rawID string) {
	if !r.requireMod(s, ic) {
		return
	}
	subID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ Botón inválido.")
		return
	}
	msg, err := r.svc.MarkReviewed(ctx, ic.GuildID, ic.Member.User.ID, subID)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ "+err.Error())
		return
	}
	if err := s.ChannelMessageDelete(ic.ChannelID, ic.Message.ID, discordgo.WithContext(ctx)); err != nil {
		log.Printf("[review] delete item msg: %v", err)
	}
	ReplyEphemeral(s, ic, msg)
	r.panel.refresh(ic.GuildID)
}

// adminAction: patrón común "chequear admin, llamar service, responder,
// refrescar panel".
func (r *Router) adminAction(
	ctx context.Context,
	s *discordgo.Session,
	ic *discordgo.InteractionCreate,
	fn func(context.Context, string) (string, error),
) {
	if !r.requireAdmin(s, ic) {
		return
	}
	msg, err := fn(ctx, ic.GuildID)
	if err != nil {
		msg = "⚠️ " + err.Error()
	}
	ReplyEphemeral(s, ic, msg)
	r.panel.refresh(ic.GuildID)
}

// handleMessage es el observer de entregas: cualquier mensaje con audio en
// los canales configurados entra por acá.
func (r *Router) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if len(m.Attachments) == 0 {
		return
	}

	atts := make([]service.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		atts = append(atts, service.Attachment{URL: a.URL, ContentType: a.ContentType})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	author := service.Author{
		ID:        m.Author.ID,
		Username:  m.Author.Username,
		AvatarURL: m.Author.AvatarURL(""),
	}
	out, err := r.svc.HandleMessage(ctx, m.GuildID, m.ChannelID, author, atts)
	if err != nil {
		log.Printf("[intake] guild=%s user=%s: %v", m.GuildID, m.Author.ID, err)
		return
	}
	if out == nil {
		return
	}

	if out.React != "" {
		if err := s.MessageReactionAdd(m.ChannelID, m.ID, out.React, discordgo.WithContext(ctx)); err != nil {
			log.Printf("[intake] react: %v", err)
		}
	}
	if out.DM != "" {
		// DMs bloqueados no son error nuestro
		if err := r.svc.DirectMessage(ctx, m.Author.ID, out.DM); err != nil {
			log.Printf("[intake] dm user=%s: %v", m.Author.ID, err)
		}
	}
	if out.FinalBattle != nil {
		r.postFinalBattle(ctx, m.GuildID, out.FinalBattle)
	}
	if out.PanelDirty {
		r.panel.refresh(m.GuildID)
	}
}

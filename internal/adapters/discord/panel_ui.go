package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/xcg-koth-bot/internal/app/service"
	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"
)

const (
	panelDebounce = 80 * time.Millisecond
	ctxRenderMax  = 900 * time.Millisecond

	colorInfo    = 0x3498db
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorGold    = 0xf1c40f
)

// panelRefresher serializa la secuencia leer-renderizar-editar del panel:
// un lock por guild + debounce para no pisar updates concurrentes ni
// floodear la API con edits.
type panelRefresher struct {
	r *Router

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	timers map[string]*time.Timer
}

func newPanelRefresher(r *Router) *panelRefresher {
	return &panelRefresher{
		r:      r,
		locks:  map[string]*sync.Mutex{},
		timers: map[string]*time.Timer{},
	}
}

func (p *panelRefresher) guildLock(guildID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[guildID] = l
	}
	return l
}

// refresh agenda un repaint con debounce.
func (p *panelRefresher) refresh(guildID string) {
	p.mu.Lock()
	if t, ok := p.timers[guildID]; ok {
		t.Stop()
	}
	p.timers[guildID] = time.AfterFunc(panelDebounce, func() { p.repaint(guildID) })
	p.mu.Unlock()
}

func (p *panelRefresher) repaint(guildID string) {
	lock := p.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), ctxRenderMax)
	defer cancel()

	st, err := p.r.svc.Settings(ctx, guildID)
	if err != nil || st.ReviewChannelID == "" || st.PanelMessageID == "" {
		return
	}

	embed, comps, err := p.r.renderPanel(ctx, guildID)
	if err != nil {
		log.Printf("[panel.refresh] render guild=%s: %v", guildID, err)
		return
	}

	em := []*discordgo.MessageEmbed{embed}
	cc := []discordgo.MessageComponent{comps}
	_, err = p.r.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    st.ReviewChannelID,
		ID:         st.PanelMessageID,
		Embeds:     &em,
		Components: &cc,
	}, discordgo.WithContext(ctx))
	if err != nil {
		var re *discordgo.RESTError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == 404 {
			// el panel fue borrado a mano; nada que editar
			log.Printf("[panel.refresh] panel de guild=%s no existe más", guildID)
			return
		}
		log.Printf("[panel.refresh] edit guild=%s: %v", guildID, err)
	}
	log.Printf("[panel.refresh] total=%s", time.Since(start))
}

// publishPanel borra el panel viejo (si queda) y publica uno nuevo en el
// canal de review configurado.
func (r *Router) publishPanel(ctx context.Context, guildID string) (string, error) {
	st, err := r.svc.Settings(ctx, guildID)
	if err != nil {
		return "", err
	}
	if st.ReviewChannelID == "" {
		return "❌ No hay canal de review configurado. Usá `/subsettings` primero.", nil
	}

	if st.PanelMessageID != "" {
		if err := r.s.ChannelMessageDelete(st.ReviewChannelID, st.PanelMessageID, discordgo.WithContext(ctx)); err != nil {
			log.Printf("[panel] delete panel viejo guild=%s: %v", guildID, err)
		}
	}

	embed, comps, err := r.renderPanel(ctx, guildID)
	if err != nil {
		return "", err
	}
	msg, err := r.s.ChannelMessageSendComplex(st.ReviewChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{comps},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	if err := r.svc.SavePanelMessage(ctx, guildID, msg.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Panel publicado en <#%s>.", st.ReviewChannelID), nil
}

// renderPanel arma embed + botones desde el PanelState puro del service.
func (r *Router) renderPanel(ctx context.Context, guildID string) (*discordgo.MessageEmbed, discordgo.MessageComponent, error) {
	ps, err := r.svc.PanelState(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}

	var title string
	var desc strings.Builder
	color := colorInfo

	switch ps.Status {
	case storage.StatusKothClosed, storage.StatusKothOpen:
		title = "⚔️ Panel King of the Hill"
		open := "CERRADAS"
		if ps.Status == storage.StatusKothOpen {
			open = "ABIERTAS"
		}
		fmt.Fprintf(&desc, "**Modo:** King of the Hill\n**Entregas:** `%s`\n**Cola:** `%d` retadores esperando.", open, ps.QueueCount)
		if ps.KingID != "" {
			fmt.Fprintf(&desc, "\n\n**Rey actual:** <@%s>", ps.KingID)
		}
		if len(ps.SessionBoard) > 0 {
			desc.WriteString("\n\n**Scoreboard (batalla actual):**\n")
			for i, e := range ps.SessionBoard {
				fmt.Fprintf(&desc, "`%d.` <@%s>: `%d` pts (`%d` wins)\n", i+1, e.UserID, e.Points, e.Wins)
			}
		}

	case storage.StatusKothTiebreaker:
		title = "⚔️ Panel King of the Hill"
		desc.WriteString("**Modo:** King of the Hill\n**Entregas:** `DUELO DE DESEMPATE`")
		if len(ps.TiebreakerUsers) > 0 {
			mentions := make([]string, 0, len(ps.TiebreakerUsers))
			for _, uid := range ps.TiebreakerUsers {
				mentions = append(mentions, "<@"+uid+">")
			}
			fmt.Fprintf(&desc, "\n\nEsperando las entregas finales de %s.", strings.Join(mentions, ", "))
		}
		if ps.KingID != "" {
			fmt.Fprintf(&desc, "\n\n**Rey actual:** <@%s>", ps.KingID)
		}
		color = colorGold

	default:
		title = "🎵 Panel de Submissions"
		estado := "CERRADAS"
		color = colorError
		if ps.Status == storage.StatusOpen {
			estado = "ABIERTAS"
			color = colorSuccess
		}
		fmt.Fprintf(&desc, "Las submissions están **%s**.\n\n**Cola:** `%d` tracks pendientes.", estado, ps.QueueCount)
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc.String(),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	row := discordgo.ActionsRow{Components: panelButtons(ps.Actions)}
	return embed, row, nil
}

// panelButtons materializa los action ids del service en botones.
func panelButtons(actions []string) []discordgo.MessageComponent {
	specs := map[string]discordgo.Button{
		service.ActionStartRegular:     {Style: discordgo.SuccessButton, Label: "Abrir Submissions"},
		service.ActionPlayRegular:      {Style: discordgo.PrimaryButton, Label: "▶️ Play"},
		service.ActionStopRegular:      {Style: discordgo.DangerButton, Label: "⏹️ Cerrar"},
		service.ActionStatsRegular:     {Style: discordgo.SecondaryButton, Label: "📊 Stats"},
		service.ActionSwitchToKoth:     {Style: discordgo.SecondaryButton, Label: "Modo KOTH"},
		service.ActionStartKoth:        {Style: discordgo.SuccessButton, Label: "Arrancar Batalla"},
		service.ActionPlayKoth:         {Style: discordgo.PrimaryButton, Label: "▶️ Play KOTH"},
		service.ActionStopKoth:         {Style: discordgo.DangerButton, Label: "⏹️ Frenar Batalla"},
		service.ActionStatsKoth:        {Style: discordgo.SecondaryButton, Label: "📊 KOTH Stats"},
		service.ActionSwitchToRegular:  {Style: discordgo.SecondaryButton, Label: "Modo Regular"},
		service.ActionCancelTiebreaker: {Style: discordgo.DangerButton, Label: "🛑 Cancelar Tiebreaker"},
	}

	out := make([]discordgo.MessageComponent, 0, len(actions))
	for _, id := range actions {
		b, ok := specs[id]
		if !ok {
			continue
		}
		b.CustomID = id
		out = append(out, b)
	}
	return out
}

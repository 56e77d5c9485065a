package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/xcg-koth-bot/internal/adapters/discord"
	"github.com/jose-valero/xcg-koth-bot/internal/adapters/webpanel"
	"github.com/jose-valero/xcg-koth-bot/internal/app/service"
	"github.com/jose-valero/xcg-koth-bot/internal/infra/config"
	"github.com/jose-valero/xcg-koth-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	subsRepo := storage.NewSubmissionRepo(db)
	boardRepo := storage.NewLeaderboardRepo(db)
	settingsRepo := storage.NewSettingsRepo(db)
	invRepo := storage.NewInventoryRepo(db)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Widget hub + service
	hub := webpanel.NewHub()
	sessions := service.NewSessionRegistry()
	ann := discordrouter.NewAnnouncer(s)
	svc := service.NewBattleService(subsRepo, boardRepo, settingsRepo, invRepo, sessions, ann, hub)

	// Widget HTTP (websocket del overlay OBS)
	web := webpanel.New(hub, func(ctx context.Context, guildID string) (any, error) {
		return svc.WidgetSnapshot(ctx, guildID)
	})
	go web.Start(cfg.HTTPAddr)

	// Router
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, svc, cfg.AdminRoleIDs, cfg.ModRoleIDs)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Re-sync periódico del panel, por si algún edit se perdió
	go func() {
		t := time.NewTicker(2 * time.Minute)
		defer t.Stop()
		for range t.C {
			r.RefreshPanel(cfg.DiscordGuild)
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}

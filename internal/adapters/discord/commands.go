package discord

import "github.com/bwmarrin/discordgo"

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "koth",
		Description: "Gestiona la batalla King of the Hill",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "addpoint",
				Description: "Suma puntos a un miembro",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Miembro", Required: true},
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "scope", Description: "Dónde sumar", Required: true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Batalla actual", Value: "battle"},
							{Name: "Leaderboard histórico", Value: "leaderboard"},
						},
					},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Cuántos (default 1)"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "removepoint",
				Description: "Resta puntos a un miembro",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Miembro", Required: true},
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "scope", Description: "Dónde restar", Required: true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "Batalla actual", Value: "battle"},
							{Name: "Leaderboard histórico", Value: "leaderboard"},
						},
					},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "points", Description: "Cuántos (default 1)"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stats",
				Description: "Leaderboard histórico KOTH",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "resetstats",
				Description: "Borra el leaderboard histórico del server (sin undo)",
			},
		},
	},
	{
		Name:        "setup_submission_panel",
		Description: "Publica (o re-publica) el panel de control en el canal de review",
	},
	{
		Name:        "subsettings",
		Description: "Configura canales y rol del sistema de submissions",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "submission_channel", Description: "Canal de entregas regulares"},
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "koth_channel", Description: "Canal de entregas KOTH"},
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "review_channel", Description: "Canal de review / panel"},
			{Type: discordgo.ApplicationCommandOptionRole, Name: "winner_role", Description: "Rol para el ganador KOTH"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Apagar/prender todo el sistema"},
		},
	},
	{
		Name:        "grantpass",
		Description: "Da priority passes a un miembro (admin)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "member", Description: "Miembro", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "qty", Description: "Cuántos (default 1)"},
		},
	},
	{
		Name:        "use",
		Description: "Usa un item de tu inventario",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pass",
				Description: "Usa un priority pass: tu último track se adelanta en la cola",
			},
		},
	},
}

package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Announcer implementa service.Announcer sobre la sesión de discordgo.
// Separado del Router para que el service pueda anunciar sin ciclo de
// dependencias.
type Announcer struct {
	s *discordgo.Session
}

func NewAnnouncer(s *discordgo.Session) *Announcer { return &Announcer{s: s} }

func (a *Announcer) Announce(ctx context.Context, channelID, content string) (string, error) {
	msg, err := a.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (a *Announcer) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return a.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (a *Announcer) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return a.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// RemoveRoleFromAll le saca el rol de ganador a todos los que lo tengan
// (arranque de batalla nueva). Pagina de a 1000 miembros.
func (a *Announcer) RemoveRoleFromAll(ctx context.Context, guildID, roleID string) error {
	after := ""
	for {
		members, err := a.s.GuildMembers(guildID, after, 1000, discordgo.WithContext(ctx))
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		for _, m := range members {
			for _, rid := range m.Roles {
				if rid == roleID {
					if err := a.s.GuildMemberRoleRemove(guildID, m.User.ID, roleID, discordgo.WithContext(ctx)); err != nil {
						return err
					}
					break
				}
			}
		}
		after = members[len(members)-1].User.ID
		if len(members) < 1000 {
			return nil
		}
	}
}

// DirectMessage: best-effort, el caller decide si loguear el error.
func (a *Announcer) DirectMessage(ctx context.Context, userID, content string) error {
	ch, err := a.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = a.s.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return err
}

package discord

import "github.com/bwmarrin/discordgo"

// requireAdmin: owner del guild, bit Administrator, o rol de la lista
// ADMIN_ROLE_IDS.
func (r *Router) requireAdmin(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if hasElevated(s, ic) || hasAnyRole(ic, r.adminRoleIDs) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 No tienes permisos para esta acción.")
	return false
}

// requireMod: todo admin es mod; además acepta MOD_ROLE_IDS.
func (r *Router) requireMod(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if hasElevated(s, ic) || hasAnyRole(ic, r.adminRoleIDs) || hasAnyRole(ic, r.modRoleIDs) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 No tienes permisos para esta acción.")
	return false
}

func hasElevated(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	// Owner
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member != nil && ic.Member.User != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit
	roles, _ := s.GuildRoles(ic.GuildID)
	var perms int64
	for _, rid := range ic.Member.Roles {
		for _, ro := range roles {
			if ro.ID == rid {
				perms |= ro.Permissions
			}
		}
	}
	return (perms & discordgo.PermissionAdministrator) != 0
}

func hasAnyRole(ic *discordgo.InteractionCreate, want []string) bool {
	if len(want) == 0 || ic.Member == nil {
		return false
	}
	has := make(map[string]struct{}, len(ic.Member.Roles))
	for _, rid := range ic.Member.Roles {
		has[rid] = struct{}{}
	}
	for _, w := range want {
		if _, ok := has[w]; ok {
			return true
		}
	}
	return false
}

package router

import (
	"strings"

	kit "recobot/internal/transport"
)

// sanitizeTelegramCommand converts a route into a Telegram command name,
// which must match [a-z0-9_]{1,32}.
func sanitizeTelegramCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == ' ' || r == '/':
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	return out
}

// buildMenuCommands lists every route as a menu entry, e.g. "reco now"
// becomes /reco_now.
func buildMenuCommands(cmds []Command) []kit.BotCommand {
	seen := map[string]bool{}
	out := make([]kit.BotCommand, 0, len(cmds))
	for _, c := range cmds {
		name := sanitizeTelegramCommand(strings.Join(splitRoute(c.Route), "_"))
		if name == "" || seen[name] || c.Handle == nil {
			continue
		}
		seen[name] = true
		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			desc = c.Route
		}
		out = append(out, kit.BotCommand{Command: name, Description: desc})
	}
	return out
}

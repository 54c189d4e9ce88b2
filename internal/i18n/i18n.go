// Package i18n holds the user-facing strings of the relay in an
// x/text message catalog, plus the {{placeholder}} substitution applied to
// guild-provided templates.
package i18n

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeySelectPrompt      = "select_prompt"
	KeySelectPlaceholder = "select_placeholder"
	KeySelectPrevious    = "select_previous"
	KeySelectNext        = "select_next"
	KeySelectPage        = "select_page"
	KeySelectTimedOut    = "select_timed_out"
	KeySelectConfirmed   = "select_confirmed"
	KeyNoGuilds          = "no_guilds"
	KeyTooShort          = "too_short"
	KeyNoticeTitle       = "notice_title"
	KeyHeldTitle         = "held_title"
	KeyHeldContent       = "held_content"
	KeyHeldAuthor        = "held_author"
	KeyDMFail            = "dm_fail"
	KeyStaffLabel        = "staff_label"
	KeyModerators        = "moderators"
	KeyAnonymous         = "anonymous"
	KeyTeam              = "team"
	KeyReplyID           = "reply_id"
	KeyNewThread         = "new_thread"
	KeyThreadClosed      = "thread_closed"
	KeyNotConfigured     = "not_configured"
	KeyReplyNotFound     = "reply_not_found"
	KeyNotAuthor         = "not_author"
	KeyUsage             = "usage"
)

var english = map[string]string{
	KeySelectPrompt:      "You share several servers with this bot. Pick the server you want to contact.",
	KeySelectPlaceholder: "Select a server",
	KeySelectPrevious:    "Previous page",
	KeySelectNext:        "Next page",
	KeySelectPage:        "Page %d of %d",
	KeySelectTimedOut:    "Selection timed out. Send your message again to retry.",
	KeySelectConfirmed:   "Contacting **%s**.",
	KeyNoGuilds:          "You are not in any server that uses this bot.",
	KeyTooShort:          "**Error:** Your message must be at least %d words long to open a thread. Please describe your issue in more detail.",
	KeyNoticeTitle:       "%s - Notice",
	KeyHeldTitle:         "Direct Message Held",
	KeyHeldContent:       "Content",
	KeyHeldAuthor:        "Author",
	KeyDMFail:            "Could not deliver this reply: the user does not accept direct messages.",
	KeyStaffLabel:        "%s Staff",
	KeyModerators:        "Server Moderators",
	KeyAnonymous:         "Anonymous",
	KeyTeam:              "%s Team",
	KeyReplyID:           "Reply ID: %d",
	KeyNewThread:         "New thread opened by %s (%s).",
	KeyThreadClosed:      "Thread closed by %s.",
	KeyNotConfigured:     "This server has not configured a modmail channel yet.",
	KeyReplyNotFound:     "No reply with ID %d in this thread.",
	KeyNotAuthor:         "Only the staff member who sent reply %d can edit it.",
	KeyUsage:             "Usage: %sreply <text> | %sareply <text> | %sedit <id> <text> | %sclose",
}

var cat = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for k, v := range english {
		// Keys and templates are static; errors here are programming errors.
		if err := b.SetString(language.English, k, v); err != nil {
			panic(err)
		}
	}
	return b
}()

// Printer renders catalog messages for one locale.
type Printer struct {
	p *message.Printer
}

var (
	supported = cat.Languages()
	matcher   = language.NewMatcher(supported)
)

// NewPrinter returns a printer for the catalog language closest to tag.
// Tags with no translation get English.
func NewPrinter(tag language.Tag) *Printer {
	_, i, _ := matcher.Match(tag)
	return &Printer{p: message.NewPrinter(supported[i], message.Catalog(cat))}
}

// T renders key with args.
func (p *Printer) T(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Vars are the values available to guild templates.
type Vars struct {
	Username    string
	DisplayName string
	UserID      string
	GuildName   string
	MemberCount int
}

// Substitute replaces {{username}}, {{displayName}}, {{userId}},
// {{guildName}} and {{memberCount}} in tmpl. Unknown placeholders are kept.
func Substitute(tmpl string, v Vars) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	r := strings.NewReplacer(
		"{{username}}", v.Username,
		"{{displayName}}", v.DisplayName,
		"{{userId}}", v.UserID,
		"{{guildName}}", v.GuildName,
		"{{memberCount}}", strconv.Itoa(v.MemberCount),
	)
	return r.Replace(tmpl)
}

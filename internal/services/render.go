package services

import (
	"strconv"
	"strings"

	"github.com/tbourn/go-modmail/internal/i18n"
	"github.com/tbourn/go-modmail/internal/platform"
)

// Card colors.
const (
	ColorBlurple = 0x5865F2
	ColorNeutral = 0x2b2d31
	ColorInbound = 0x57F287
)

// Renderer builds transport payloads for both sides of a thread.
type Renderer struct {
	P   *i18n.Printer
	Bot platform.User
}

// ReplyView is everything needed to render one staff reply.
type ReplyView struct {
	Guild       platform.Guild
	Staff       platform.Member
	Content     string
	Attachments []platform.Attachment
	Anon        bool
	Simple      bool
	// ReplyID is zero until the reply has been persisted.
	ReplyID int
}

// VarsFor returns the template variables of member in guild.
func VarsFor(member platform.Member, guild platform.Guild) i18n.Vars {
	return i18n.Vars{
		Username:    member.User.Username,
		DisplayName: member.DisplayName(),
		UserID:      member.User.ID,
		GuildName:   guild.Name,
		MemberCount: guild.MemberCount,
	}
}

func firstImage(atts []platform.Attachment) (string, []platform.Attachment) {
	var rest []platform.Attachment
	img := ""
	for _, a := range atts {
		if img == "" && a.IsImage() {
			img = a.URL
			continue
		}
		rest = append(rest, a)
	}
	return img, rest
}

func attachmentLines(atts []platform.Attachment) string {
	urls := make([]string, 0, len(atts))
	for _, a := range atts {
		urls = append(urls, a.URL)
	}
	return strings.Join(urls, "\n")
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

func inlineCode(id int) string { return "`" + strconv.Itoa(id) + "`" }

// Inbound renders a user's message for the thread side.
func (r *Renderer) Inbound(simple bool, member platform.Member, msg platform.Message) platform.Payload {
	tag := member.User.Tag()
	if simple {
		return platform.Payload{
			Content: joinNonEmpty("📥 **"+tag+":** "+msg.Content, attachmentLines(msg.Attachments)),
		}
	}
	img, rest := firstImage(msg.Attachments)
	e := platform.Embed{
		Color:       ColorInbound,
		Description: msg.Content,
		ImageURL:    img,
		Author:      &platform.EmbedAuthor{Name: member.DisplayName(), IconURL: member.DisplayAvatarURL()},
		Footer:      &platform.EmbedFooter{Text: tag + " (" + member.User.ID + ")"},
	}
	if len(rest) > 0 {
		e.Fields = append(e.Fields, platform.EmbedField{Name: "Attachments", Value: attachmentLines(rest)})
	}
	return platform.Payload{Embeds: []platform.Embed{e}}
}

// StaffThreadSide renders the staff-visible copy of a reply. It keeps the
// real staff identity in the rich footer even for anonymous replies.
func (r *Renderer) StaffThreadSide(v ReplyView) platform.Payload {
	if v.Simple {
		var b strings.Builder
		if v.ReplyID > 0 {
			b.WriteString(inlineCode(v.ReplyID) + " ")
		}
		if v.Anon {
			b.WriteString("(" + r.P.T(i18n.KeyAnonymous) + ") ")
		}
		b.WriteString("(" + r.P.T(i18n.KeyTeam, v.Guild.Name) + ") " + r.P.T(i18n.KeyModerators) + ":")
		return platform.Payload{Content: joinNonEmpty("**"+b.String()+"** "+v.Content, attachmentLines(v.Attachments))}
	}

	footer := v.Staff.User.Tag() + " (" + v.Staff.User.ID + ")"
	if v.ReplyID > 0 {
		footer = r.P.T(i18n.KeyReplyID, v.ReplyID) + " | " + footer
	}
	e := r.staffEmbed(v)
	e.Footer = &platform.EmbedFooter{Text: footer, IconURL: v.Staff.User.AvatarURL}
	return platform.Payload{Embeds: []platform.Embed{e}}
}

// StaffUserSide renders the user-facing copy of a reply. Anonymous replies
// carry no staff name, tag, id or avatar.
func (r *Renderer) StaffUserSide(v ReplyView) platform.Payload {
	if !v.Anon {
		return r.StaffThreadSide(v)
	}
	if v.Simple {
		prefix := ""
		if v.ReplyID > 0 {
			prefix = inlineCode(v.ReplyID) + " "
		}
		head := prefix + "(" + r.P.T(i18n.KeyAnonymous) + ") " + r.P.T(i18n.KeyModerators) + ":"
		return platform.Payload{Content: joinNonEmpty("**"+head+"** "+v.Content, attachmentLines(v.Attachments))}
	}
	e := r.staffEmbed(v)
	if v.ReplyID > 0 {
		e.Footer = &platform.EmbedFooter{Text: r.P.T(i18n.KeyReplyID, v.ReplyID)}
	}
	return platform.Payload{Embeds: []platform.Embed{e}}
}

func (r *Renderer) staffEmbed(v ReplyView) platform.Embed {
	img, rest := firstImage(v.Attachments)
	e := platform.Embed{
		Color:       ColorBlurple,
		Description: v.Content,
		ImageURL:    img,
	}
	switch {
	case v.Anon:
		e.Author = &platform.EmbedAuthor{Name: r.P.T(i18n.KeyModerators), IconURL: v.Guild.IconURL}
	case v.Staff.Nick != "":
		e.Author = &platform.EmbedAuthor{Name: v.Staff.DisplayName(), IconURL: v.Staff.DisplayAvatarURL()}
	}
	if len(rest) > 0 {
		e.Fields = append(e.Fields, platform.EmbedField{Name: "Attachments", Value: attachmentLines(rest)})
	}
	return e
}

// Greeting renders the configured greeting for both sides.
func (r *Renderer) Greeting(simple bool, guild platform.Guild, text string) platform.Payload {
	label := r.P.T(i18n.KeyStaffLabel, guild.Name)
	if simple {
		return platform.Payload{Content: "⚙️ **" + label + ":** " + text}
	}
	return platform.Payload{Embeds: []platform.Embed{{
		Color:       ColorNeutral,
		Description: text,
		Author:      &platform.EmbedAuthor{Name: label, IconURL: r.Bot.AvatarURL},
	}}}
}

// Notice renders a guild-branded notice card.
func (r *Renderer) Notice(guild platform.Guild, text string) platform.Embed {
	return platform.Embed{
		Color:       ColorNeutral,
		Description: text,
		Author:      &platform.EmbedAuthor{Name: r.P.T(i18n.KeyNoticeTitle, guild.Name), IconURL: guild.IconURL},
	}
}

// HeldCard renders the moderation log entry for a dropped first message.
func (r *Renderer) HeldCard(guild platform.Guild, notice string, msg platform.Message) platform.Payload {
	e := r.Notice(guild, notice)
	e.Title = r.P.T(i18n.KeyHeldTitle)
	content := strings.TrimSpace(truncateRunes(msg.Content, 1024))
	if content == "" {
		content = "N/A"
	}
	e.Fields = []platform.EmbedField{
		{Name: r.P.T(i18n.KeyHeldContent), Value: content},
		{Name: r.P.T(i18n.KeyHeldAuthor), Value: "<@" + msg.Author.ID + ">"},
	}
	return platform.Payload{Embeds: []platform.Embed{e}}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

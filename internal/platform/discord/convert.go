package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/tbourn/go-modmail/internal/platform"
)

func fromUser(u *discordgo.User) platform.User {
	if u == nil {
		return platform.User{}
	}
	return platform.User{
		ID:            u.ID,
		Username:      u.Username,
		GlobalName:    u.GlobalName,
		Discriminator: u.Discriminator,
		AvatarURL:     u.AvatarURL(""),
		Bot:           u.Bot,
	}
}

func fromMember(guildID string, m *discordgo.Member) platform.Member {
	out := platform.Member{User: fromUser(m.User), GuildID: guildID, Nick: m.Nick}
	if m.Avatar != "" {
		if m.GuildID == "" {
			m.GuildID = guildID
		}
		out.AvatarURL = m.AvatarURL("")
	}
	return out
}

func fromGuild(g *discordgo.Guild) platform.Guild {
	count := g.MemberCount
	if count == 0 {
		count = g.ApproximateMemberCount
	}
	out := platform.Guild{ID: g.ID, Name: g.Name, MemberCount: count}
	if g.Icon != "" {
		out.IconURL = g.IconURL("")
	}
	return out
}

func fromChannel(c *discordgo.Channel) platform.Channel {
	out := platform.Channel{
		ID:       c.ID,
		GuildID:  c.GuildID,
		ParentID: c.ParentID,
		Name:     c.Name,
		IsThread: c.IsThread(),
	}
	if c.ThreadMetadata != nil {
		out.Archived = c.ThreadMetadata.Archived
	}
	return out
}

func fromMessage(m *discordgo.Message) platform.Message {
	out := platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    fromUser(m.Author),
		Content:   m.Content,
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		out.Attachments = append(out.Attachments, platform.Attachment{URL: a.URL, Filename: a.Filename, ContentType: a.ContentType})
	}
	return out
}

func fromInteraction(i *discordgo.Interaction) platform.ComponentInteraction {
	out := platform.ComponentInteraction{ID: i.ID, Token: i.Token, ChannelID: i.ChannelID}
	switch {
	case i.Member != nil && i.Member.User != nil:
		out.UserID = i.Member.User.ID
	case i.User != nil:
		out.UserID = i.User.ID
	}
	if i.Message != nil {
		out.MessageID = i.Message.ID
	}
	data := i.MessageComponentData()
	out.CustomID = data.CustomID
	out.Values = data.Values
	return out
}

func toEmbeds(in []platform.Embed) []*discordgo.MessageEmbed {
	if len(in) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		if e.Author != nil {
			me.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name, IconURL: e.Author.IconURL}
		}
		if e.Footer != nil {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
		}
		if e.ImageURL != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

func toComponents(sel *platform.SelectMenu) []discordgo.MessageComponent {
	if sel == nil {
		return nil
	}
	opts := make([]discordgo.SelectMenuOption, 0, len(sel.Options))
	for _, o := range sel.Options {
		label := o.Label
		if o.Emoji != "" {
			label = o.Emoji + " " + label
		}
		opts = append(opts, discordgo.SelectMenuOption{Label: label, Value: o.Value, Description: o.Description})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    sel.CustomID,
				Placeholder: sel.Placeholder,
				MaxValues:   1,
				Options:     opts,
				Disabled:    sel.Disabled,
			},
		}},
	}
}

// allowedMentions suppresses every mention except the listed roles.
func allowedMentions(p platform.Payload) *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{},
		Roles: p.MentionRoles,
	}
}

func toMessageSend(p platform.Payload) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         p.Content,
		Embeds:          toEmbeds(p.Embeds),
		Components:      toComponents(p.Select),
		AllowedMentions: allowedMentions(p),
	}
}

func toMessageEdit(channelID, messageID string, p platform.Payload) *discordgo.MessageEdit {
	m := discordgo.NewMessageEdit(channelID, messageID)
	m.SetContent(p.Content)
	m.SetEmbeds(toEmbeds(p.Embeds))
	if p.Select != nil || p.ClearComponents {
		comps := toComponents(p.Select)
		if comps == nil {
			comps = []discordgo.MessageComponent{}
		}
		m.Components = &comps
	}
	m.AllowedMentions = allowedMentions(p)
	return m
}

func toResponseData(p platform.Payload) *discordgo.InteractionResponseData {
	comps := toComponents(p.Select)
	if comps == nil {
		comps = []discordgo.MessageComponent{}
	}
	embeds := toEmbeds(p.Embeds)
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	return &discordgo.InteractionResponseData{
		Content:         p.Content,
		Embeds:          embeds,
		Components:      comps,
		AllowedMentions: allowedMentions(p),
	}
}

package discord

import (
	"fmt"

	"github.com/ponymod/derpiguard/tagmod/engine"

	"github.com/bwmarrin/discordgo"
)

// bots and webhooks
func isAutomated(m *discordgo.Message) bool {
	return m.WebhookID != "" || (m.Author != nil && m.Author.Bot)
}

// Reports whether the channel type carries an NSFW flag (guild text and announcement channels), and the flag value.
func classifyChannel(ch *discordgo.Channel) (classified, adult bool) {
	if ch == nil {
		return false, false
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return true, ch.NSFW
	}
	return false, false
}

func messageFromDiscord(m *discordgo.Message, classified, adult, deletable bool) *engine.Message {
	msg := &engine.Message{
		ID:                m.ID,
		ChannelID:         m.ChannelID,
		GuildID:           m.GuildID,
		AuthorBot:         isAutomated(m),
		Content:           m.Content,
		ChannelClassified: classified,
		AdultAllowed:      adult,
		Deletable:         deletable,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
	}
	for _, a := range m.Attachments {
		if a != nil && a.URL != "" {
			msg.AttachmentURLs = append(msg.AttachmentURLs, a.URL)
		}
	}
	return msg
}

func mentionText(userID, text string) string {
	return fmt.Sprintf("<@%s>, %s", userID, text)
}

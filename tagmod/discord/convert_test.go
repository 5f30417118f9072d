package discord

import (
	"testing"

	"github.com/ponymod/derpiguard/tagmod/engine"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestClassifyChannel(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		ch         *discordgo.Channel
		classified bool
		adult      bool
	}{
		{ch: nil},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeGuildText}, classified: true},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeGuildText, NSFW: true}, classified: true, adult: true},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeGuildNews, NSFW: true}, classified: true, adult: true},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeDM}},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeGroupDM}},
		{ch: &discordgo.Channel{Type: discordgo.ChannelTypeGuildCategory, NSFW: true}},
	}

	for _, fix := range fixtures {
		classified, adult := classifyChannel(fix.ch)
		assert.Equal(fix.classified, classified)
		assert.Equal(fix.adult, adult)
	}
}

func TestMessageFromDiscord(t *testing.T) {
	assert := assert.New(t)

	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		GuildID:   "g1",
		Content:   "hello https://example.com/a.png",
		Author:    &discordgo.User{ID: "u1"},
		Attachments: []*discordgo.MessageAttachment{
			{ID: "a1", URL: "https://cdn.discordapp.com/attachments/c1/a1/pic.png"},
			nil,
			{ID: "a2", URL: ""},
		},
	}

	msg := messageFromDiscord(m, true, true, true)
	assert.Equal(&engine.Message{
		ID:                "m1",
		ChannelID:         "c1",
		GuildID:           "g1",
		AuthorID:          "u1",
		Content:           "hello https://example.com/a.png",
		AttachmentURLs:    []string{"https://cdn.discordapp.com/attachments/c1/a1/pic.png"},
		ChannelClassified: true,
		AdultAllowed:      true,
		Deletable:         true,
	}, msg)

	m.Author.Bot = true
	assert.True(messageFromDiscord(m, true, false, true).AuthorBot)

	m.Author.Bot = false
	m.WebhookID = "w1"
	assert.True(messageFromDiscord(m, true, false, true).AuthorBot)
}

func TestMentionText(t *testing.T) {
	assert.Equal(t, "<@u1>, your message was removed", mentionText("u1", "your message was removed"))
}

func TestNewBotRequiresToken(t *testing.T) {
	_, err := NewBot("", nil)
	assert.Error(t, err)
}

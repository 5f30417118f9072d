// Discord side of the moderation bot: receives message events from the gateway, and carries out deletions and notifications for the engine.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ponymod/derpiguard/tagmod/engine"

	"github.com/bwmarrin/discordgo"
)

type Bot struct {
	Session *discordgo.Session
	Engine  *engine.Engine
	Logger  *slog.Logger

	ctx context.Context
}

var _ engine.Platform = (*Bot)(nil)

func NewBot(token string, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent
	// keep recent messages around so edits come with the previous version
	s.State.MaxMessageCount = 200

	return &Bot{
		Session: s,
		Logger:  logger,
	}, nil
}

// Connects to the gateway and dispatches message events to the engine until the context is cancelled. Returns an error right away if login fails.
func (b *Bot) Run(ctx context.Context) error {
	if b.Engine == nil {
		return fmt.Errorf("nil engine")
	}
	b.ctx = ctx

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.Logger.Info("connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	b.Session.AddHandler(b.handleMessageCreate)
	b.Session.AddHandler(b.handleMessageUpdate)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("discord login failed: %w", err)
	}
	defer func() {
		if err := b.Session.Close(); err != nil {
			b.Logger.Error("closing discord session", "err", err)
		}
	}()

	<-ctx.Done()
	b.Logger.Info("shutting down discord session")
	return nil
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	msg, err := b.convertMessage(m.Message)
	if err != nil {
		b.Logger.Warn("could not resolve message context", "message", m.ID, "channel", m.ChannelID, "err", err)
		return
	}
	if msg == nil {
		return
	}
	if err := b.Engine.ProcessMessage(b.ctx, msg); err != nil {
		b.Logger.Error("processing message create failed", "message", m.ID, "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) handleMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	msg, err := b.convertMessage(m.Message)
	if err != nil {
		b.Logger.Warn("could not resolve message context", "message", m.ID, "channel", m.ChannelID, "err", err)
		return
	}
	if msg == nil {
		return
	}
	var old *engine.Message
	if m.BeforeUpdate != nil {
		old = &engine.Message{ID: m.BeforeUpdate.ID, Content: m.BeforeUpdate.Content}
	}
	if err := b.Engine.ProcessMessageUpdate(b.ctx, old, msg); err != nil {
		b.Logger.Error("processing message update failed", "message", m.ID, "channel", m.ChannelID, "err", err)
	}
}

// Resolves channel and permission details for a gateway message. Returns nil (and no error) for partial messages which can't be evaluated.
func (b *Bot) convertMessage(m *discordgo.Message) (*engine.Message, error) {
	if m == nil || m.Author == nil {
		return nil, nil
	}
	// cheap exit before any channel lookups
	if isAutomated(m) {
		return messageFromDiscord(m, false, false, false), nil
	}

	ch, err := b.channel(m.ChannelID)
	if err != nil {
		return nil, err
	}
	classified, adult := classifyChannel(ch)
	deletable := false
	if classified {
		deletable = b.canDelete(m)
	}
	return messageFromDiscord(m, classified, adult, deletable), nil
}

func (b *Bot) channel(id string) (*discordgo.Channel, error) {
	if ch, err := b.Session.State.Channel(id); err == nil {
		return ch, nil
	}
	return b.Session.Channel(id, discordgo.WithContext(b.ctx))
}

func (b *Bot) canDelete(m *discordgo.Message) bool {
	self := b.Session.State.User
	if self == nil {
		return false
	}
	if m.Author.ID == self.ID {
		return true
	}
	perms, err := b.Session.State.UserChannelPermissions(self.ID, m.ChannelID)
	if err != nil {
		perms, err = b.Session.UserChannelPermissions(self.ID, m.ChannelID, discordgo.WithContext(b.ctx))
		if err != nil {
			b.Logger.Warn("could not resolve channel permissions", "channel", m.ChannelID, "err", err)
			return false
		}
	}
	return perms&discordgo.PermissionManageMessages != 0
}

func (b *Bot) DeleteMessage(ctx context.Context, msg *engine.Message) error {
	return b.Session.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx))
}

func (b *Bot) Reply(ctx context.Context, msg *engine.Message, text string) error {
	_, err := b.Session.ChannelMessageSend(msg.ChannelID, mentionText(msg.AuthorID, text), discordgo.WithContext(ctx))
	return err
}

func (b *Bot) SendDirectMessage(ctx context.Context, userID, text string) error {
	ch, err := b.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	_, err = b.Session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return err
}

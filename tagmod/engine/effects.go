package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

func replyText(tags []string) string {
	return fmt.Sprintf("your message was removed because it contained an image tagged: %s", strings.Join(tags, ", "))
}

func directMessageText(msg *Message, tags []string) string {
	return fmt.Sprintf("Your message in <#%s> was removed because it contained an image tagged: %s", msg.ChannelID, strings.Join(tags, ", "))
}

// Records that we are deleting a message. Returns false if a deletion was already attempted, so each message is deleted at most once.
func (eng *Engine) claimDeletion(msgID string) bool {
	eng.deleteMu.Lock()
	defer eng.deleteMu.Unlock()
	if eng.deleted.Contains(msgID) {
		return false
	}
	eng.deleted.Add(msgID, true)
	return true
}

// Deletes an unsafe message, then notifies the author and the mod log.
//
// A message the platform won't let us delete is left alone, and nobody is notified.
func (eng *Engine) takeAction(ctx context.Context, logger *slog.Logger, msg *Message, dec Decision) error {
	// notifications only follow a successful delete; this branch and the delete-failure one below both leave the author and mod log alone
	if !msg.Deletable {
		logger.Warn("unsafe message is not deletable, leaving in place", "tags", dec.Tags)
		actionCount.WithLabelValues("not-deletable").Inc()
		return nil
	}
	if !eng.claimDeletion(msg.ID) {
		logger.Info("message deletion already attempted", "tags", dec.Tags)
		return nil
	}

	if err := eng.Platform.DeleteMessage(ctx, msg); err != nil {
		logger.Error("failed to delete message", "tags", dec.Tags, "err", err)
		actionCount.WithLabelValues("delete-failed").Inc()
		return fmt.Errorf("deleting message %s: %w", msg.ID, err)
	}
	logger.Info("deleted message", "tags", dec.Tags)
	actionCount.WithLabelValues("delete").Inc()

	eng.notifyAuthor(ctx, logger, msg, dec.Tags)
	if eng.ModLog != nil {
		if err := eng.ModLog.SendDeletion(ctx, msg, dec.Tags); err != nil {
			logger.Warn("failed to send mod log notification", "err", err)
		}
	}
	return nil
}

// Best-effort: reply in channel, fall back to a direct message, then give up.
func (eng *Engine) notifyAuthor(ctx context.Context, logger *slog.Logger, msg *Message, tags []string) {
	err := eng.Platform.Reply(ctx, msg, replyText(tags))
	if err == nil {
		notificationCount.WithLabelValues("reply").Inc()
		return
	}
	logger.Info("could not reply in channel, trying direct message", "err", err)

	err = eng.Platform.SendDirectMessage(ctx, msg.AuthorID, directMessageText(msg, tags))
	if err == nil {
		notificationCount.WithLabelValues("dm").Inc()
		return
	}
	logger.Warn("could not notify author of deleted message", "err", err)
	notificationCount.WithLabelValues("failed").Inc()
}

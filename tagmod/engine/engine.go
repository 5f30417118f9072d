package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ponymod/derpiguard/tagmod/cachestore"
	"github.com/ponymod/derpiguard/tagmod/helpers"
	"github.com/ponymod/derpiguard/tagmod/policy"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("tagmod")

// runtime for evaluating messages against the tag policy, and carrying out deletions and notifications.
//
// Construct with NewEngine. Cache and ModLog are optional and may be set after construction, before the engine starts receiving messages.
type Engine struct {
	Logger   *slog.Logger
	Lookup   TagLookup
	Policy   *policy.Policy
	Platform Platform
	Config   Config
	// caches tag lookup results (optional)
	Cache cachestore.TagStore
	// moderation log of deletions (optional)
	ModLog Notifier

	// message ID to hash of the last content we evaluated
	contentHashes *expirable.LRU[string, string]
	// message IDs we have already tried to delete
	deleted  *expirable.LRU[string, bool]
	deleteMu sync.Mutex
}

func NewEngine(config Config, lookup TagLookup, pol *policy.Policy, platform Platform, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MessageCacheSize <= 0 {
		config.MessageCacheSize = DefaultConfig().MessageCacheSize
	}
	return &Engine{
		Logger:        logger,
		Lookup:        lookup,
		Policy:        pol,
		Platform:      platform,
		Config:        config,
		contentHashes: expirable.NewLRU[string, string](config.MessageCacheSize, nil, config.MessageCacheTTL),
		deleted:       expirable.NewLRU[string, bool](config.MessageCacheSize, nil, config.MessageCacheTTL),
	}
}

// Returns a non-empty reason if the message should not be moderated at all.
func (eng *Engine) ignoreReason(msg *Message) string {
	switch {
	case msg.AuthorBot:
		return "bot-author"
	case !msg.ChannelClassified:
		return "channel-type"
	case eng.deleted.Contains(msg.ID):
		return "already-deleted"
	}
	return ""
}

// Handles a newly created message: evaluates any images, and deletes the message (and notifies the author) if a banned tag is found.
//
// Lookup and notification failures are logged, not returned. A returned error means the deletion itself failed.
func (eng *Engine) ProcessMessage(ctx context.Context, msg *Message) (err error) {
	// similar to an HTTP server, we want to recover any panics from message processing
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("tagmod message processing exception", "err", r, "message", msg.ID, "channel", msg.ChannelID)
			err = fmt.Errorf("message processing panic: %v", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "ProcessMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message", msg.ID), attribute.String("channel", msg.ChannelID))

	logger := eng.Logger.With("message", msg.ID, "channel", msg.ChannelID, "author", msg.AuthorID)

	if reason := eng.ignoreReason(msg); reason != "" {
		logger.Debug("ignoring message", "reason", reason)
		messagesIgnored.WithLabelValues(reason).Inc()
		return nil
	}
	eng.contentHashes.Add(msg.ID, helpers.HashOfString(msg.Content))

	start := time.Now()
	defer func() {
		messageDuration.Observe(time.Since(start).Seconds())
	}()

	if len(msg.AttachmentURLs) > 0 && eng.Config.AttachmentDelay > 0 {
		t := time.NewTimer(eng.Config.AttachmentDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	dec := eng.Evaluate(ctx, logger, msg)
	eng.CanonicalLogLine(logger, dec)
	span.SetAttributes(attribute.Bool("unsafe", dec.Unsafe), attribute.Int("checked", dec.Checked))
	if !dec.Unsafe {
		messagesProcessed.WithLabelValues("clean").Inc()
		return nil
	}
	messagesProcessed.WithLabelValues("unsafe").Inc()
	return eng.takeAction(ctx, logger, msg, dec)
}

// Handles an edited message. Re-evaluates only if the text content changed.
//
// old is the previous version of the message, if the platform has it cached. Without it, the engine compares against the content it last evaluated for this message ID; a message it has never seen is evaluated.
func (eng *Engine) ProcessMessageUpdate(ctx context.Context, old, msg *Message) error {
	if old != nil {
		if old.Content == msg.Content {
			messagesIgnored.WithLabelValues("unchanged").Inc()
			return nil
		}
	} else if prev, ok := eng.contentHashes.Get(msg.ID); ok && prev == helpers.HashOfString(msg.Content) {
		messagesIgnored.WithLabelValues("unchanged").Inc()
		return nil
	}
	return eng.ProcessMessage(ctx, msg)
}

// Emits a single summary log line per evaluated message.
func (eng *Engine) CanonicalLogLine(logger *slog.Logger, dec Decision) {
	logger.Info("tagmod-message",
		"unsafe", dec.Unsafe,
		"tags", dec.Tags,
		"checked", dec.Checked,
		"failed", dec.Failed,
		"mode", eng.Config.Mode,
	)
}

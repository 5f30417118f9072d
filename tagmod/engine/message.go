package engine

import (
	"context"
)

// Platform-neutral view of a chat message, with everything the engine needs already resolved by the platform adapter.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	// author is an automated account (bot or webhook)
	AuthorBot bool
	Content   string
	// direct URLs of any file attachments, in attachment order
	AttachmentURLs []string
	// channel type carries an "adult content permitted" flag; other channel types are not moderated
	ChannelClassified bool
	// channel permits adult content
	AdultAllowed bool
	// platform reports that we are allowed to delete this message
	Deletable bool
}

// Outbound actions on the chat platform.
type Platform interface {
	DeleteMessage(ctx context.Context, msg *Message) error
	// posts a reply to the author in the message's channel
	Reply(ctx context.Context, msg *Message, text string) error
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// Image tag service. Errors worth retrying should wrap derpi.ErrTransient; a direct lookup of an unknown image should wrap derpi.ErrNotFound.
type TagLookup interface {
	ImageTags(ctx context.Context, imageID string) ([]string, error)
	// returns one tag list per matched image
	ReverseSearchTags(ctx context.Context, imageURL string, distance float64) ([][]string, error)
}

// Outcome of evaluating a single message.
type Decision struct {
	Unsafe bool
	// banned tags found, de-duplicated
	Tags []string
	// number of image references which were looked up (or attempted)
	Checked int
	// number of lookups which failed and were treated as clean
	Failed int
}

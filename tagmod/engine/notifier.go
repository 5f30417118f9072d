package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ponymod/derpiguard/util"
)

// Interface for a type that can report moderation actions to a mod log
type Notifier interface {
	SendDeletion(ctx context.Context, msg *Message, tags []string) error
}

// Posts to an "incoming webhook" URL. The body has both "text" (Slack) and "content" (Discord) fields, so either kind of webhook works.
type WebhookNotifier struct {
	WebhookURL string
	Client     *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		WebhookURL: webhookURL,
		Client:     util.RobustHTTPClient(),
	}
}

type WebhookBody struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

func (n *WebhookNotifier) SendDeletion(ctx context.Context, msg *Message, tags []string) error {
	return n.sendMsg(ctx, deletionBody(msg, tags))
}

func (n *WebhookNotifier) sendMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(WebhookBody{Text: msg, Content: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed mod log webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func deletionBody(msg *Message, tags []string) string {
	s := "⚠️ Image Tag Policy Deletion ⚠️\n"
	s += fmt.Sprintf("message `%s` in <#%s> by <@%s>\n", msg.ID, msg.ChannelID, msg.AuthorID)
	if msg.AdultAllowed {
		s += "Channel: nsfw\n"
	} else {
		s += "Channel: sfw\n"
	}
	s += fmt.Sprintf("Tags: `%s`\n", strings.Join(tags, ", "))
	return s
}

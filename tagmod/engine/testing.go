package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ponymod/derpiguard/tagmod/derpi"
	"github.com/ponymod/derpiguard/tagmod/policy"
)

// In-memory Platform which records every action. Intentionally exported, for use in other packages' tests.
type MockPlatform struct {
	DeleteErr error
	ReplyErr  error
	DMErr     error

	mu      sync.Mutex
	deleted []string
	replies []string
	dms     []string
}

var _ Platform = (*MockPlatform)(nil)

func (p *MockPlatform) DeleteMessage(ctx context.Context, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, msg.ID)
	return p.DeleteErr
}

func (p *MockPlatform) Reply(ctx context.Context, msg *Message, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, msg.ID)
	return p.ReplyErr
}

func (p *MockPlatform) SendDirectMessage(ctx context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms = append(p.dms, userID)
	return p.DMErr
}

// message IDs for which deletion was attempted
func (p *MockPlatform) Deleted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.deleted...)
}

// message IDs for which a reply was attempted
func (p *MockPlatform) Replies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.replies...)
}

// user IDs for which a direct message was attempted
func (p *MockPlatform) DirectMessages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.dms...)
}

// In-memory TagLookup. Unknown ids return derpi.ErrNotFound; unknown URLs have no matches.
type MockLookup struct {
	ImageTagsByID map[string][]string
	TagsByURL     map[string][][]string
	// number of leading calls which fail with a transient error
	TransientFailures int
	// returned (after any transient failures) instead of a result
	Err error

	mu       sync.Mutex
	calls    int
	idCalls  []string
	urlCalls []string
}

var _ TagLookup = (*MockLookup)(nil)

func (l *MockLookup) fail() error {
	l.calls++
	if l.calls <= l.TransientFailures {
		return fmt.Errorf("%w: mock outage (call %d)", derpi.ErrTransient, l.calls)
	}
	return l.Err
}

func (l *MockLookup) ImageTags(ctx context.Context, imageID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idCalls = append(l.idCalls, imageID)
	if err := l.fail(); err != nil {
		return nil, err
	}
	tags, ok := l.ImageTagsByID[imageID]
	if !ok {
		return nil, &derpi.APIError{StatusCode: 404, Op: "image"}
	}
	return tags, nil
}

func (l *MockLookup) ReverseSearchTags(ctx context.Context, imageURL string, distance float64) ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urlCalls = append(l.urlCalls, imageURL)
	if err := l.fail(); err != nil {
		return nil, err
	}
	return l.TagsByURL[imageURL], nil
}

func (l *MockLookup) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *MockLookup) IDCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.idCalls...)
}

func (l *MockLookup) URLCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.urlCalls...)
}

func FixturePolicy() *policy.Policy {
	return policy.New(policy.BannedTags{
		Both: []string{"grimdark"},
		SFW:  []string{"explicit", "questionable"},
		NSFW: []string{"foalcon"},
	})
}

// Engine wired to the given mocks, with test-friendly timings (no attachment delay, millisecond backoff).
func EngineTestFixture(platform Platform, lookup TagLookup) *Engine {
	config := DefaultConfig()
	config.AttachmentDelay = 0
	config.RetryBackoff = time.Millisecond
	config.LookupTimeout = time.Second
	config.MessageCacheSize = 100
	return NewEngine(config, lookup, FixturePolicy(), platform, slog.Default())
}

package engine

import (
	"fmt"
	"time"
)

type EvalMode string

const (
	// check candidates one at a time, stopping at the first banned tag. Fewer API calls; a slow early candidate delays the verdict.
	EvalSequential EvalMode = "sequential"
	// check all candidates at once and OR the results. Lowest latency, and the reported tags cover every image; always costs one lookup per candidate.
	EvalConcurrent EvalMode = "concurrent"
)

func ParseEvalMode(s string) (EvalMode, error) {
	switch EvalMode(s) {
	case EvalSequential, EvalConcurrent:
		return EvalMode(s), nil
	}
	return "", fmt.Errorf("unknown evaluation mode: %q", s)
}

// Tunables for an Engine. Immutable once the engine is constructed.
type Config struct {
	Mode EvalMode
	// reverse image search match distance
	Fuzziness float64
	// total tries per image lookup on transient failure; 1 disables retries
	LookupAttempts int
	// backoff before retry N is RetryBackoff * N
	RetryBackoff time.Duration
	// timeout for each individual lookup call
	LookupTimeout time.Duration
	// wait before processing messages with attachments, so the CDN has the file before the tag service fetches it
	AttachmentDelay time.Duration
	// cap on in-flight lookups per message in concurrent mode; zero is unlimited
	MaxConcurrency int
	// size and TTL of the per-process message memory (edit detection, deleted messages)
	MessageCacheSize int
	MessageCacheTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mode:             EvalSequential,
		Fuzziness:        0.2,
		LookupAttempts:   5,
		RetryBackoff:     500 * time.Millisecond,
		LookupTimeout:    15 * time.Second,
		AttachmentDelay:  200 * time.Millisecond,
		MaxConcurrency:   8,
		MessageCacheSize: 50_000,
		MessageCacheTTL:  24 * time.Hour,
	}
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ponymod/derpiguard/tagmod/derpi"
	"github.com/ponymod/derpiguard/tagmod/helpers"
	"github.com/ponymod/derpiguard/tagmod/policy"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Returns the de-duplicated image references for a message, in candidate order. URLs which don't look like images are dropped.
func (eng *Engine) ImageRefs(logger *slog.Logger, msg *Message) []helpers.ImageRef {
	var refs []helpers.ImageRef
	seen := make(map[string]bool)
	for _, raw := range helpers.CollectURLs(msg.Content, msg.AttachmentURLs) {
		ref, ok := helpers.NormalizeImageURL(raw)
		if !ok {
			logger.Debug("skipping non-image URL", "url", raw)
			continue
		}
		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		refs = append(refs, ref)
	}
	return refs
}

// Evaluates all candidate images in a message against the channel's banned tags.
//
// Lookup failures fail open: the image is logged and treated as clean.
func (eng *Engine) Evaluate(ctx context.Context, logger *slog.Logger, msg *Message) Decision {
	refs := eng.ImageRefs(logger, msg)
	if len(refs) == 0 {
		return Decision{}
	}
	banned := eng.Policy.BannedTags(msg.AdultAllowed)

	if eng.Config.Mode == EvalConcurrent {
		return eng.evaluateConcurrent(ctx, logger, refs, banned)
	}
	return eng.evaluateSequential(ctx, logger, refs, banned)
}

func (eng *Engine) evaluateSequential(ctx context.Context, logger *slog.Logger, refs []helpers.ImageRef, banned policy.TagSet) Decision {
	var dec Decision
	for _, ref := range refs {
		matched, err := eng.CheckImage(ctx, logger, ref, banned)
		dec.Checked++
		if err != nil {
			dec.Failed++
			continue
		}
		if len(matched) > 0 {
			dec.Unsafe = true
			dec.Tags = matched
			break
		}
	}
	return dec
}

func (eng *Engine) evaluateConcurrent(ctx context.Context, logger *slog.Logger, refs []helpers.ImageRef, banned policy.TagSet) Decision {
	results := make([][]string, len(refs))
	errs := make([]error, len(refs))

	var g errgroup.Group
	if eng.Config.MaxConcurrency > 0 {
		g.SetLimit(eng.Config.MaxConcurrency)
	}
	for i, ref := range refs {
		g.Go(func() error {
			results[i], errs[i] = eng.CheckImage(ctx, logger, ref, banned)
			return nil
		})
	}
	_ = g.Wait()

	dec := Decision{Checked: len(refs)}
	for _, err := range errs {
		if err != nil {
			dec.Failed++
		}
	}
	dec.Tags = helpers.DedupeStrings(flatten(results))
	dec.Unsafe = len(dec.Tags) > 0
	return dec
}

func flatten(in [][]string) []string {
	var out []string
	for _, l := range in {
		out = append(out, l...)
	}
	return out
}

// Looks up a single image and returns any banned tags it carries. A returned error means the lookup failed (after retries); it has already been logged.
func (eng *Engine) CheckImage(ctx context.Context, logger *slog.Logger, ref helpers.ImageRef, banned policy.TagSet) ([]string, error) {
	sets, err := eng.LookupTags(ctx, logger, ref)
	if err != nil {
		logger.Warn("tag lookup failed, treating image as clean", "ref", ref.Key(), "err", err)
		lookupFailures.Inc()
		return nil, err
	}
	return policy.MatchBanned(banned, sets...), nil
}

// Fetches tag sets for an image reference, using the cache if configured, and retrying transient failures with linear backoff.
func (eng *Engine) LookupTags(ctx context.Context, logger *slog.Logger, ref helpers.ImageRef) ([][]string, error) {
	ctx, span := tracer.Start(ctx, "LookupTags")
	defer span.End()
	span.SetAttributes(attribute.String("ref", ref.Key()))

	if sets, ok := eng.cachedTags(ctx, logger, ref); ok {
		lookupCount.WithLabelValues(refKind(ref), "cached").Inc()
		return sets, nil
	}

	attempt := 0
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * eng.Config.RetryBackoff, false
	})
	maxRetries := 0
	if eng.Config.LookupAttempts > 1 {
		maxRetries = eng.Config.LookupAttempts - 1
	}

	var sets [][]string
	err := retry.Do(ctx, retry.WithMaxRetries(uint64(maxRetries), backoff), func(ctx context.Context) error {
		out, err := eng.lookupOnce(ctx, ref)
		if err != nil {
			if derpi.IsTransient(err) {
				logger.Info("transient tag lookup failure", "ref", ref.Key(), "attempt", attempt+1, "err", err)
				lookupRetries.Inc()
				return retry.RetryableError(err)
			}
			return err
		}
		sets = out
		return nil
	})
	if err != nil {
		lookupCount.WithLabelValues(refKind(ref), "error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	lookupCount.WithLabelValues(refKind(ref), "ok").Inc()
	eng.storeTags(ctx, logger, ref, sets)
	return sets, nil
}

func (eng *Engine) lookupOnce(ctx context.Context, ref helpers.ImageRef) ([][]string, error) {
	if eng.Config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.Config.LookupTimeout)
		defer cancel()
	}

	if ref.IsDirect() {
		tags, err := eng.Lookup.ImageTags(ctx, ref.ImageID)
		if errors.Is(err, derpi.ErrNotFound) {
			// definitive answer: no such image, so nothing to match
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return [][]string{tags}, nil
	}
	return eng.Lookup.ReverseSearchTags(ctx, ref.URL, eng.Config.Fuzziness)
}

func refKind(ref helpers.ImageRef) string {
	if ref.IsDirect() {
		return "id"
	}
	return "url"
}

func (eng *Engine) cachedTags(ctx context.Context, logger *slog.Logger, ref helpers.ImageRef) ([][]string, bool) {
	if eng.Cache == nil {
		return nil, false
	}
	sets, ok, err := eng.Cache.GetTags(ctx, ref.Key())
	if err != nil {
		logger.Warn("tag cache read failed", "ref", ref.Key(), "err", err)
		return nil, false
	}
	return sets, ok
}

func (eng *Engine) storeTags(ctx context.Context, logger *slog.Logger, ref helpers.ImageRef, sets [][]string) {
	if eng.Cache == nil {
		return
	}
	if err := eng.Cache.PutTags(ctx, ref.Key(), sets); err != nil {
		logger.Warn("tag cache write failed", "ref", ref.Key(), "err", err)
	}
}

// Drops any cached lookup result for an image reference, so the next lookup goes to the tag service. Used when an image's tags have changed upstream.
func (eng *Engine) ForgetTags(ctx context.Context, ref helpers.ImageRef) error {
	if eng.Cache == nil {
		return nil
	}
	return eng.Cache.Purge(ctx, ref.Key())
}

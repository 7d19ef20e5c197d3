package backend

import (
	"context"
	"fmt"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"attrfilter/domain"
)

// rateLimited throttles every backend call through a token bucket
type rateLimited struct {
	next    Backend
	limiter *rate.Limiter
}

// RateLimited wraps b so that calls wait for a token from limiter.
// A call canceled while waiting returns the context error without reaching b.
func RateLimited(b Backend, limiter *rate.Limiter) Backend {
	if limiter == nil {
		return b
	}
	return &rateLimited{next: b, limiter: limiter}
}

func (r *rateLimited) GetAttributeByDisplayForm(ctx context.Context, workspace string, displayForm domain.ObjRef) (domain.AttributeMetadata, error) {
	if err := r.wait(ctx, "attribute"); err != nil {
		return domain.AttributeMetadata{}, err
	}
	return r.next.GetAttributeByDisplayForm(ctx, workspace, displayForm)
}

func (r *rateLimited) QueryElements(ctx context.Context, workspace string, query ElementsQuery) (ElementsResult, error) {
	if err := r.wait(ctx, "elements"); err != nil {
		return ElementsResult{}, err
	}
	return r.next.QueryElements(ctx, workspace, query)
}

func (r *rateLimited) wait(ctx context.Context, op string) error {
	if r.limiter.Allow() {
		return nil
	}
	slogcontext.FromCtx(ctx).Debug("backend call throttled", "op", op)
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// dedup merges identical in-flight attribute lookups into one backend call
type dedup struct {
	Backend
	group singleflight.Group
}

// Dedup wraps b so concurrent GetAttributeByDisplayForm calls for the same
// workspace and display form share one backend request. Each caller still
// honors its own ctx; the shared request is not canceled by a single caller.
func Dedup(b Backend) Backend {
	return &dedup{Backend: b}
}

func (d *dedup) GetAttributeByDisplayForm(ctx context.Context, workspace string, displayForm domain.ObjRef) (domain.AttributeMetadata, error) {
	key := workspace + "\x00" + string(displayForm)
	ch := d.group.DoChan(key, func() (any, error) {
		return d.Backend.GetAttributeByDisplayForm(context.WithoutCancel(ctx), workspace, displayForm)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slogcontext.FromCtx(ctx).Debug("attribute lookup shared", "displayForm", displayForm)
		}
		if res.Err != nil {
			return domain.AttributeMetadata{}, res.Err
		}
		return res.Val.(domain.AttributeMetadata), nil
	case <-ctx.Done():
		return domain.AttributeMetadata{}, ctx.Err()
	}
}

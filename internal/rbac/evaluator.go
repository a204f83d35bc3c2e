package rbac

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// checkTimeout bounds a shared lookup, which outlives the request that started it.
const checkTimeout = 10 * time.Second

// PermissionChecker delegates permission questions to the remote authority.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID, permission string, resource *string) (bool, error)
}

// Check names one permission, optionally scoped to a resource.
type Check struct {
	Permission string
	Resource   *string
}

// Evaluator answers fine-grained permission questions. It performs no policy
// evaluation of its own; results only decide which controls are shown.
type Evaluator struct {
	checker  PermissionChecker
	cache    *CheckCache
	logger   *slog.Logger
	observer CheckObserver
	group    singleflight.Group
}

// NewEvaluator constructs an Evaluator. cache may be nil.
func NewEvaluator(checker PermissionChecker, cache *CheckCache, logger *slog.Logger, observer CheckObserver) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{checker: checker, cache: cache, logger: logger, observer: observer}
}

// HasPermission reports whether the remote authority grants the permission.
// Any failure resolves to false.
func (e *Evaluator) HasPermission(ctx context.Context, userID, permission string, resource *string) bool {
	if userID == "" || permission == "" {
		return false
	}
	granted, err := e.shared(ctx, userID, permission, resource)
	if err != nil {
		e.logger.Error("rbac has permission",
			slog.String("user_id", userID),
			slog.String("permission", permission),
			slog.Any("error", err))
		e.observe(OutcomeError)
		return false
	}
	if granted {
		e.observe(OutcomeGranted)
	} else {
		e.observe(OutcomeDenied)
	}
	return granted
}

// shared joins identical concurrent checks. The lookup runs detached from any
// one caller so a cancelled request does not fail the others; each caller
// still stops waiting when its own context ends.
func (e *Evaluator) shared(ctx context.Context, userID, permission string, resource *string) (bool, error) {
	flightKey := userID + "|" + KeyOf(permission, resource)
	ch := e.group.DoChan(flightKey, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), checkTimeout)
		defer cancel()
		return e.lookup(lookupCtx, userID, permission, resource)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		granted, _ := res.Val.(bool)
		return granted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// HasAny reports whether at least one of the checks is granted.
func (e *Evaluator) HasAny(ctx context.Context, userID string, checks ...Check) bool {
	for _, c := range checks {
		if e.HasPermission(ctx, userID, c.Permission, c.Resource) {
			return true
		}
	}
	return false
}

// Invalidate drops every cached answer.
func (e *Evaluator) Invalidate(ctx context.Context) error {
	return e.cache.Bump(ctx)
}

func (e *Evaluator) lookup(ctx context.Context, userID, permission string, resource *string) (bool, error) {
	load := func(ctx context.Context) (bool, error) {
		return e.checker.CheckPermission(ctx, userID, permission, resource)
	}
	if e.cache == nil {
		return load(ctx)
	}
	key, err := e.cache.Key(ctx, userID, permission, resource)
	if err != nil {
		e.logger.Warn("rbac cache key", slog.Any("error", err))
		return load(ctx)
	}
	return e.cache.Fetch(ctx, key, load)
}

func (e *Evaluator) observe(outcome string) {
	if e.observer != nil {
		e.observer.ObserveCheck("permission", outcome)
	}
}

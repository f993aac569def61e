package objectsource

import (
	"context"
	"fmt"

	syncerr "github.com/lcgerke/wasync/internal/errors"
)

// ValidatingSource wraps a Source and enforces the identifier/depth grammar
// at the boundary, failing BadRequest locally without making a network call.
type ValidatingSource struct {
	inner Source
}

// Validate wraps src with input validation.
func Validate(src Source) *ValidatingSource {
	return &ValidatingSource{inner: src}
}

func (v *ValidatingSource) Identity(ctx context.Context) (string, error) {
	return v.inner.Identity(ctx)
}

func (v *ValidatingSource) ListWorlds(ctx context.Context, principal string) ([]Ref, error) {
	return v.inner.ListWorlds(ctx, principal)
}

func (v *ValidatingSource) ListCategories(ctx context.Context, world string) ([]Ref, error) {
	if !IsUUID(world) {
		return nil, badRequestID(world)
	}
	return v.inner.ListCategories(ctx, world)
}

func (v *ValidatingSource) ListArticles(ctx context.Context, world, category string) ([]Ref, error) {
	if !IsUUID(world) {
		return nil, badRequestID(world)
	}
	if category != UncategorizedSentinel && !IsUUID(category) {
		return nil, badRequestID(category)
	}
	return v.inner.ListArticles(ctx, world, category)
}

func (v *ValidatingSource) Get(ctx context.Context, kind Kind, id string, depth int) (Payload, error) {
	if !IsUUID(id) && id != NullUUID {
		return nil, badRequestID(id)
	}
	if !ValidDepth(depth) {
		return nil, syncerr.New(syncerr.KindBadRequest, fmt.Sprintf("depth %d out of range [-1, 9]", depth))
	}
	return v.inner.Get(ctx, kind, id, depth)
}

func badRequestID(id string) error {
	return syncerr.New(syncerr.KindBadRequest, fmt.Sprintf("identifier %q is not a valid UUID", id))
}

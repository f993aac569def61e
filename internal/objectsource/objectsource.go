// Package objectsource defines the capability interface the Synchronizer
// uses to talk to the remote content service, the boundary validation the
// Kind/id/depth grammar requires, and the upstream error-kind mapping.
//
// Besides the contract and the thin validation/classification layer, the
// package holds HTTPSource, a minimal bearer-token HTTP implementation with
// no retries and untyped JSON payloads, plus its Logger and
// MetricsCollector.
package objectsource

import (
	"context"

	"github.com/google/uuid"

	syncerr "github.com/lcgerke/wasync/internal/errors"
)

// Kind enumerates the three object kinds the daemon tracks, dispatched
// through a single Get method.
type Kind int

const (
	KindWorld Kind = iota
	KindCategory
	KindArticle
)

func (k Kind) String() string {
	switch k {
	case KindWorld:
		return "world"
	case KindCategory:
		return "category"
	case KindArticle:
		return "article"
	default:
		return "unknown"
	}
}

// NullUUID is the sentinel identifier for "no entity".
const NullUUID = "00000000-0000-0000-0000-000000000000"

// UncategorizedSentinel is the literal category id that enumerates articles
// with no assigned category (a domain convention of the upstream, not a
// valid UUID).
const UncategorizedSentinel = "-1"

// IsUUID reports whether s is a canonical 36-character UUID
// (case-insensitive). The length check rejects the alternative encodings
// uuid.Parse tolerates (braced, urn-prefixed, unhyphenated).
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidDepth reports whether d is within the allowed [-1, 9] depth range.
func ValidDepth(d int) bool {
	return d >= -1 && d <= 9
}

// Ref is a minimal enumeration result: an identifier plus whatever
// additional fields the enumeration endpoint returned.
type Ref struct {
	ID  string
	URL string // present for worlds; empty otherwise
}

// Payload is the raw JSON body of an object fetched at a given depth.
type Payload []byte

// Source is the capability interface consumed from the upstream content
// service.
type Source interface {
	// Identity returns the authenticated principal's id.
	Identity(ctx context.Context) (string, error)

	// ListWorlds enumerates the worlds owned by principal.
	ListWorlds(ctx context.Context, principal string) ([]Ref, error)

	// ListCategories enumerates the categories of world.
	ListCategories(ctx context.Context, world string) ([]Ref, error)

	// ListArticles enumerates the articles of world under category.
	// category may be UncategorizedSentinel.
	ListArticles(ctx context.Context, world, category string) ([]Ref, error)

	// Get fetches a single object of the given kind at the requested depth.
	Get(ctx context.Context, kind Kind, id string, depth int) (Payload, error)
}

// ClassifyUpstreamError maps an upstream HTTP-style status code to the
// local error taxonomy.
func ClassifyUpstreamError(statusCode int, err error) *syncerr.SyncError {
	switch statusCode {
	case 400, 422:
		if statusCode == 422 {
			return syncerr.Wrap(syncerr.KindUnprocessable, "upstream rejected the request as unprocessable", err)
		}
		return syncerr.Wrap(syncerr.KindBadRequest, "upstream rejected the request", err)
	case 401:
		return syncerr.Wrap(syncerr.KindUnauthorized, "upstream authentication failed", err)
	case 403:
		return syncerr.Wrap(syncerr.KindAccessForbidden, "upstream denied access", err)
	case 404:
		return syncerr.Wrap(syncerr.KindNotFound, "upstream object not found", err)
	default:
		switch {
		case statusCode >= 500:
			return syncerr.Wrap(syncerr.KindInternalServer, "upstream internal error", err)
		case statusCode == 0:
			return syncerr.Wrap(syncerr.KindConnection, "upstream unreachable", err)
		default:
			return syncerr.Wrap(syncerr.KindFailed, "upstream request failed", err)
		}
	}
}

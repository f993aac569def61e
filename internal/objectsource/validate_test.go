package objectsource

import (
	"context"
	"errors"
	"testing"

	syncerr "github.com/lcgerke/wasync/internal/errors"
)

type stubSource struct {
	identity   string
	categories []Ref
	articles   []Ref
	payload    Payload
	calls      int
}

func (s *stubSource) Identity(ctx context.Context) (string, error) { return s.identity, nil }
func (s *stubSource) ListWorlds(ctx context.Context, principal string) ([]Ref, error) {
	return nil, nil
}
func (s *stubSource) ListCategories(ctx context.Context, world string) ([]Ref, error) {
	s.calls++
	return s.categories, nil
}
func (s *stubSource) ListArticles(ctx context.Context, world, category string) ([]Ref, error) {
	s.calls++
	return s.articles, nil
}
func (s *stubSource) Get(ctx context.Context, kind Kind, id string, depth int) (Payload, error) {
	s.calls++
	return s.payload, nil
}

const validWorld = "550e8400-e29b-41d4-a716-446655440000"

func TestValidatingSource_RejectsBadWorldWithoutCallingInner(t *testing.T) {
	stub := &stubSource{}
	v := Validate(stub)

	_, err := v.ListCategories(context.Background(), "not-a-uuid")
	if err == nil {
		t.Fatal("expected error for invalid world id")
	}
	var se *syncerr.SyncError
	if !errors.As(err, &se) || se.Kind != syncerr.KindBadRequest {
		t.Fatalf("expected KindBadRequest, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatal("inner source must not be called on validation failure")
	}
}

func TestValidatingSource_AllowsUncategorizedSentinel(t *testing.T) {
	stub := &stubSource{articles: []Ref{{ID: "a"}}}
	v := Validate(stub)

	refs, err := v.ListArticles(context.Background(), validWorld, UncategorizedSentinel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected refs to pass through, got %v", refs)
	}
	if stub.calls != 1 {
		t.Fatal("expected inner source to be called once")
	}
}

func TestValidatingSource_RejectsBadCategory(t *testing.T) {
	stub := &stubSource{}
	v := Validate(stub)

	_, err := v.ListArticles(context.Background(), validWorld, "not-uncategorized-not-uuid")
	if err == nil {
		t.Fatal("expected error for invalid category id")
	}
	if stub.calls != 0 {
		t.Fatal("inner source must not be called on validation failure")
	}
}

func TestValidatingSource_GetRejectsBadDepth(t *testing.T) {
	stub := &stubSource{}
	v := Validate(stub)

	_, err := v.Get(context.Background(), KindWorld, validWorld, 99)
	if err == nil {
		t.Fatal("expected error for out-of-range depth")
	}
	var se *syncerr.SyncError
	if !errors.As(err, &se) || se.Kind != syncerr.KindBadRequest {
		t.Fatalf("expected KindBadRequest, got %v", err)
	}
	if stub.calls != 0 {
		t.Fatal("inner source must not be called on validation failure")
	}
}

func TestValidatingSource_GetAllowsNullUUID(t *testing.T) {
	stub := &stubSource{payload: Payload(`{}`)}
	v := Validate(stub)

	_, err := v.Get(context.Background(), KindArticle, NullUUID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatal("expected inner source to be called once")
	}
}

func TestValidatingSource_GetValidPassesThrough(t *testing.T) {
	stub := &stubSource{payload: Payload(`{"id":"x"}`)}
	v := Validate(stub)

	p, err := v.Get(context.Background(), KindArticle, validWorld, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(p) != `{"id":"x"}` {
		t.Fatalf("unexpected payload: %s", p)
	}
}

package officeauth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002/jwt"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func staticProvider(name string, id *Identity, err error, calls *int) IdentityProvider {
	return ProviderFunc{
		ProviderName: name,
		Fn: func(context.Context, *RequestContext) (*Identity, error) {
			if calls != nil {
				*calls++
			}
			return id, err
		},
	}
}

func TestResolverFirstIdentityWins(t *testing.T) {
	var secondCalls int
	first := &Identity{ID: "s1", Email: "s@example.com", Role: RoleClient}
	r := NewResolver(nil,
		staticProvider("session", first, nil, nil),
		staticProvider("token", &Identity{ID: "t1"}, nil, &secondCalls),
	)

	trace := r.Trace(context.Background(), &RequestContext{})
	if trace.Identity != first || trace.Source != "session" {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	if secondCalls != 0 {
		t.Fatalf("later providers must not run after a match, ran %d times", secondCalls)
	}
}

func TestResolverFallsThroughAbsence(t *testing.T) {
	want := &Identity{ID: "t1", Role: RoleAdmin}
	r := NewResolver(nil,
		staticProvider("session", nil, nil, nil),
		staticProvider("token", want, nil, nil),
	)

	if got := r.Resolve(context.Background(), &RequestContext{}); got != want {
		t.Fatalf("expected token identity, got %+v", got)
	}
}

func TestResolverCollapsesErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewResolver(zap.New(core),
		staticProvider("session", nil, errors.New("redis down"), nil),
		staticProvider("token", nil, jwt.ErrTokenExpired, nil),
	)

	trace := r.Trace(context.Background(), &RequestContext{})
	if trace.Identity != nil || trace.Source != "" {
		t.Fatalf("expected no identity, got %+v", trace)
	}
	if len(trace.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(trace.Failures))
	}
	if trace.Failures[0].Provider != "session" || trace.Failures[1].Provider != "token" {
		t.Fatalf("unexpected failure order: %+v", trace.Failures)
	}

	if n := logs.FilterMessage("identity provider failed").FilterLevelExact(zap.WarnLevel).Len(); n != 1 {
		t.Fatalf("expected one warn for backend failure, got %d", n)
	}
	if n := logs.FilterMessage("credential rejected").FilterLevelExact(zap.DebugLevel).Len(); n != 1 {
		t.Fatalf("expected one debug for rejected credential, got %d", n)
	}
}

func TestResolverErrorThenSuccess(t *testing.T) {
	want := &Identity{ID: "t1", Role: RoleClient}
	r := NewResolver(nil,
		staticProvider("session", nil, errors.New("boom"), nil),
		staticProvider("token", want, nil, nil),
	)

	trace := r.Trace(context.Background(), &RequestContext{})
	if trace.Identity != want || trace.Source != "token" || len(trace.Failures) != 1 {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestResolverStopsOnCanceledContext(t *testing.T) {
	var calls int
	r := NewResolver(nil, staticProvider("session", &Identity{ID: "x"}, nil, &calls))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := r.Resolve(ctx, &RequestContext{}); got != nil {
		t.Fatalf("expected nil identity on canceled context, got %+v", got)
	}
	if calls != 0 {
		t.Fatalf("provider must not run on canceled context")
	}
}

func TestResolverNilInputs(t *testing.T) {
	var r *Resolver
	if got := r.Resolve(context.Background(), &RequestContext{}); got != nil {
		t.Fatal("nil resolver must resolve nothing")
	}

	r = NewResolver(nil, nil, staticProvider("p", &Identity{ID: "x"}, nil, nil))
	if got := r.Resolve(context.Background(), nil); got != nil {
		t.Fatal("nil request context must resolve nothing")
	}
	if got := r.Resolve(context.Background(), &RequestContext{Headers: http.Header{}}); got == nil || got.ID != "x" {
		t.Fatalf("nil providers should be skipped, got %+v", got)
	}
}

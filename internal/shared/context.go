package shared

import "context"

type actorContextKey struct{}

type companyContextKey struct{}

// Actor is the authenticated user carried through a request.
type Actor interface {
	GetID() int64
	IsSuperUser() bool
}

// ContextWithActor stores the authenticated actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the authenticated actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// ContextWithCompany stores the company scope selected for the request.
func ContextWithCompany(ctx context.Context, companyID int64) context.Context {
	return context.WithValue(ctx, companyContextKey{}, companyID)
}

// CompanyFromContext returns the company scope, nil when the request is global.
func CompanyFromContext(ctx context.Context) *int64 {
	id, ok := ctx.Value(companyContextKey{}).(int64)
	if !ok {
		return nil
	}
	return &id
}

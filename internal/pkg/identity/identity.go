package identity

import "context"

// Identity is the authenticated principal derived at the boundary. Core
// operations receive it explicitly through the context rather than reading
// ambient global state.
type Identity struct {
	UserID string
	Email  string
	Admin  bool
}

type ctxKey struct{}

func With(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

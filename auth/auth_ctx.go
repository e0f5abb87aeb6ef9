package auth

import (
	"context"

	"github.com/batimarket/batimarket/types"
)

var ctxKeyUser = struct{ name string }{name: "ctx-key-user"}

func ContextWithUser(ctx context.Context, user types.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func UserFromContext(ctx context.Context) (types.Principal, bool) {
	user, ok := ctx.Value(ctxKeyUser).(types.Principal)
	return user, ok
}

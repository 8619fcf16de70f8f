package shelfmate

import "context"

type ctxKey string

const (
	ctxKeyUserID ctxKey = "shelfmate_user_id"
	ctxKeyAccess ctxKey = "shelfmate_access"
)

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// WithAccess stores the resolved authorization snapshot in the context.
func WithAccess(ctx context.Context, access ResolvedAccess) context.Context {
	return context.WithValue(ctx, ctxKeyAccess, access)
}

// AccessFromContext extracts the resolved authorization snapshot from the
// context. Absence reads as logged out.
func AccessFromContext(ctx context.Context) ResolvedAccess {
	v, ok := ctx.Value(ctxKeyAccess).(ResolvedAccess)
	if !ok {
		return LoggedOut()
	}
	return v
}

package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyEmail  ctxKey = "email"
	CtxKeyName   ctxKey = "name"
)

// UserIDFromCtx returns the authenticated caller's uid, or "" when the
// request was not authenticated.
func UserIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// EmailFromCtx returns the email claim carried by the access token, if any.
func EmailFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyEmail).(string); ok {
		return v
	}
	return ""
}

// NameFromCtx returns the display-name claim carried by the access token.
func NameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyName).(string); ok {
		return v
	}
	return ""
}

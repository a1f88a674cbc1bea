// Package requestctx carries request scoped values through a context
package requestctx

import "context"

type contextKey string

var (
	requestIDKey = contextKey("X-Request-Id")
	routeKey     = contextKey("X-Route")
	remoteIPKey  = contextKey("X-Remote-Ip")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey, route)
}

func GetRoute(ctx context.Context) string {
	value, _ := ctx.Value(routeKey).(string)
	return value
}

func SetRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey, ip)
}

func GetRemoteIP(ctx context.Context) string {
	value, _ := ctx.Value(remoteIPKey).(string)
	return value
}

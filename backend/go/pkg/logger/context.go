package logger

import "context"

type traceKey struct{}

// ContextWithTrace 把 trace id 放入 ctx，后台任务脱离请求后仍可取到。
func ContextWithTrace(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceFromContext 取出 trace id，没有时返回空串。
func TraceFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

package middlewares

// Gin context keys shared between middleware and handlers.
const (
	CtxRequestID = "request_id"
)

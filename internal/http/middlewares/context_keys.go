package middlewares

const (
	CtxRequestID = "request_id"
	CtxUser      = "auth.user"
	CtxSessionID = "session.id"
	CtxSessions  = "session.manager"
)

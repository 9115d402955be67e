package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, set by the auth middleware
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldSessionID = "session_id"

	// Domain
	FieldThreadID = "thread_id"
	FieldPostID   = "post_id"
	FieldChatID   = "chat_id"
	FieldChannel  = "channel"
	FieldProvider = "provider"

	FieldService = "service"

	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)

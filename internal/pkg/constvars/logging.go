package constvars

const (
	LoggingRequestIDKey    = "request_id"
	LoggingPatientIDKey    = "patient_id"
	LoggingActionKey       = "action"
	LoggingStatusCodeKey   = "status_code"
	LoggingMethodKey       = "method"
	LoggingEndpointKey     = "endpoint"
	LoggingRemoteAddrKey   = "remote_addr"
	LoggingUserAgentKey    = "user_agent"
	LoggingQueryKey        = "query"
	LoggingDurationKey     = "duration"
	LoggingSuccessKey      = "success"
	LoggingOperationKey    = "operation"
	LoggingCacheKey        = "cache_key"
	LoggingClientIDKey     = "client_id"
	LoggingIssueDetailsKey = "issue_details"
)

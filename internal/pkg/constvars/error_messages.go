package constvars

// Client facing messages
const (
	ErrClientSomethingWrongWithApplication = "something went wrong with the application, please try again later"
	ErrClientCannotProcessRequest          = "cannot process your request, please check your input"
	ErrClientNotAuthorized                 = "you are not authorized to access this resource"
	ErrClientUpstreamUnavailable           = "the consent service is unavailable, please try again later"
)

// Developer facing messages
const (
	ErrDevCannotParseJSON        = "failed to parse JSON"
	ErrDevCannotMarshalJSON      = "failed to marshal JSON"
	ErrDevCreateHTTPRequest      = "failed to create HTTP request"
	ErrDevSendHTTPRequest        = "failed to send HTTP request"
	ErrDevReadResponseBody       = "failed to read response body"
	ErrDevInvalidResponseBody    = "response body from %s is not valid JSON"
	ErrDevValidationFailed       = "input validation failed"
	ErrDevMissingQueryParam      = "missing required query parameter %s"
	ErrDevAuthTokenMissing       = "authorization token is missing"
	ErrDevAuthTokenInvalid       = "authorization token is invalid"
	ErrDevAuthSecretMissing      = "JWT secret is not configured"
	ErrDevAuthSigningMethod      = "unexpected token signing method"
	ErrDevTokenRequestFailed     = "token request failed with status %d"
	ErrDevEmptyAccessToken       = "token endpoint returned an empty access token"
	ErrDevRedisSet               = "failed to set redis key"
	ErrDevRedisGet               = "failed to get redis key %s"
	ErrDevRedisDelete            = "failed to delete redis key"
	ErrDevPanicRecovered         = "recovered from panic: %v"
	ErrDevServerDeadlineExceeded = "server deadline exceeded"
)

const ResponseUnknown = "unknown"

// Validation messages keyed by validator tag
var CustomValidationErrorMessages = map[string]string{
	"required": "is required",
	"oneof":    "must be one of: %s",
}

var TagsWithParams = map[string]bool{
	"oneof": true,
}

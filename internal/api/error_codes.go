// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 会话相关错误
	ErrorSessionNotFound = "SESSION_NOT_FOUND"

	// 故事相关错误
	ErrorChoiceInvalid        = "CHOICE_INVALID"
	ErrorStoryAlreadyComplete = "STORY_ALREADY_COMPLETE"
	ErrorStoryContentMissing  = "CONTENT_UNAVAILABLE"
	ErrorRevealStreamFailed   = "REVEAL_STREAM_FAILED"
	ErrorWebSocketUpgrade     = "WEBSOCKET_UPGRADE_FAILED"
)

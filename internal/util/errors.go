package util

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("sign in required")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrThemeNotFound = errors.New("theme not found")
	ErrTopicNotFound = errors.New("topic not found")
	ErrTaskNotFound  = errors.New("task not found")

	ErrInvalidContent  = errors.New("invalid content")
	ErrEmptyCode       = errors.New("code must not be empty")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// IsNotFound 判断是否为内容不存在类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrThemeNotFound) ||
		errors.Is(err, ErrTopicNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

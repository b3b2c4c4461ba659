package services

import "fmt"

// Notice levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is a user-visible outcome message shown on the next page.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func noticef(level, format string, args ...any) Notice {
	return Notice{Level: level, Message: fmt.Sprintf(format, args...)}
}

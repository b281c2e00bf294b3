package core

// Logger is any leveled logging service.
// Error/Fatal args may include an error, a map[string]interface{} of extra
// context, or a user to attach to the report.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

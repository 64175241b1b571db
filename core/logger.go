package core

// Logger is implemented by services capable of shipping application logs.
// Implementations may inspect args for well-known types (errors, users)
// and report them with extra context.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

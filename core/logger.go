package core

// Logger is implemented by every logging backend.
// args may hold errors, maps of extra data and at most one Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the authenticated operator that triggered a logged event.
type Actor struct {
	ID       string
	Username string
}

package core

// Logger is any leveled logging service.
// Extra args (errors, maps, user.User) are forwarded to the backing service.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

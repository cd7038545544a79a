package core

// Logger is any service that can log & report messages.
// expected args: error, map[string]interface{}, StaffMember (reported as the acting person)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// StaffMember identifies the authenticated staff account performing an action.
type StaffMember struct {
	Username string
	Roles    []string
}

// Package logging provides the leveled Logger used throughout accrue, along
// with the level constants shared by local output and remote forwarding.
package logging

// Levels of criticality, in increasing order
const (
	TraceLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ForwardLevel is the lowest level a Worker forwards to its Coordinator
const ForwardLevel = WarnLevel

var levelNames = [...]string{
	TraceLevel: "TRACE",
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
	FatalLevel: "FATAL",
}

// LogLevelToString translates a log level to its name. Unknown levels are TRACE.
func LogLevelToString(level int) string {
	if level < TraceLevel || level > FatalLevel {
		return levelNames[TraceLevel]
	}
	return levelNames[level]
}

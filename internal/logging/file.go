package logging

// FileLogger prefixes every message with the path of the file being ingested,
// so that a failure in the middle of a batch can be traced back to its source.
type FileLogger struct {
	prefix string
}

// ForFile returns a logger bound to a single candidate file.
func ForFile(path string) FileLogger {
	return FileLogger{prefix: path + ": "}
}

func (f FileLogger) Debug(format string, args ...interface{}) {
	Debug(f.prefix+format, args...)
}

func (f FileLogger) Info(format string, args ...interface{}) {
	Info(f.prefix+format, args...)
}

func (f FileLogger) Warn(format string, args ...interface{}) {
	Warn(f.prefix+format, args...)
}

func (f FileLogger) Error(format string, args ...interface{}) {
	Error(f.prefix+format, args...)
}

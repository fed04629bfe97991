package srec

import "fmt"

// RecordError reports a malformed or failed-validation record. Line
// numbers are 1-based.
type RecordError struct {
	Line int
	Msg  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ConfigError reports an invalid writer configuration or data that the
// configuration cannot represent.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

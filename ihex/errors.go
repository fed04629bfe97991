package ihex

import "fmt"

// RecordError reports a malformed or failed-validation record. Records
// are numbered 1-based in file order.
type RecordError struct {
	Record int
	Msg    string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Record, e.Msg)
}

// ConfigError reports an invalid writer configuration or data that the
// format cannot represent.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

//go:build windows || plan9

package audit

import "fmt"

// SyslogLogger is unavailable on this platform.
type SyslogLogger struct{}

func NewSyslogLogger(config *Config) (*SyslogLogger, error) {
	return nil, fmt.Errorf("syslog audit logging is not supported on this platform")
}

func (s *SyslogLogger) Log(action string, success bool, metadata map[string]interface{}) error {
	return nil
}

func (s *SyslogLogger) Query(options QueryOptions) (QueryResult, error) {
	return QueryResult{}, fmt.Errorf("syslog logger does not support querying historical data")
}

func (s *SyslogLogger) Close() error {
	return nil
}

// Package logging configures go-zero logx for the scheduler process.
package logging

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
)

const ServiceName = "tincan-scheduler"

// Setup configures the global logger. level is debug|info|error, encoding
// is plain|json.
func Setup(level, encoding string) error {
	switch level {
	case "", "debug", "info", "error", "severe":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	switch encoding {
	case "", "plain", "json":
	default:
		return fmt.Errorf("unknown log encoding %q", encoding)
	}

	conf := logx.LogConf{
		ServiceName: ServiceName,
		Mode:        "console",
		Encoding:    encoding,
		Level:       level,
		Stat:        false,
	}
	if conf.Encoding == "" {
		conf.Encoding = "plain"
	}
	if conf.Level == "" {
		conf.Level = "info"
	}
	return logx.SetUp(conf)
}

// Warnw logs at info level tagged severity=warn.
func Warnw(msg string, fields ...logx.LogField) {
	logx.Infow(msg, append(fields, logx.Field("severity", "warn"))...)
}

// Err renders err as the error field.
func Err(err error) logx.LogField {
	if err == nil {
		return logx.Field("error", "")
	}
	return logx.Field("error", err.Error())
}

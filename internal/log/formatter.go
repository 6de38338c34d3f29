// Package log provides the logrus formatters used by the binary.
package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

// NewFormatter returns a JSON formatter for log shippers, or a text formatter
// with full timestamps for terminals and cron mail.
func NewFormatter(json bool) logrus.Formatter {
	if json {
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		}
	}
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		QuoteEmptyFields: true,
	}
}

// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger that writes progress to the console and, when
// logFile is non-empty, full diagnostic detail (request/response bodies,
// stack traces) to a JSON log file at debug level.
func New(development bool, logFile string) (*zap.Logger, error) {
	consoleEnc := zap.NewProductionEncoderConfig()
	consoleEnc.TimeKey = "ts"
	consoleEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	if development {
		consoleEnc = zap.NewDevelopmentEncoderConfig()
		consoleEnc.TimeKey = "ts"
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEnc),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)

	cores := []zapcore.Core{consoleCore}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", logFile, err)
		}
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "ts"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.Lock(f),
			zap.DebugLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)), nil
}

/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package events

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger emits structured events through zap. The safe form of the message
// goes to the main logger; the raw form, when different, goes to the audit
// logger only.
type Logger struct {
	log   *zap.Logger
	audit *zap.Logger
}

// NewLogger wraps a zap logger. audit may be nil, in which case raw
// messages are discarded.
func NewLogger(log *zap.Logger, audit *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log, audit: audit}
}

func detailFields(d EventDetails) []zap.Field {
	return []zap.Field{
		zap.String("provider", d.ProviderKind),
		zap.String("organization_id", d.OrganizationID),
		zap.String("cluster_id", d.ClusterID),
		zap.String("execution_id", d.ExecutionID),
		zap.String("region", d.Region),
		zap.String("stage", d.Stage.String()),
		zap.String("transmitter", d.Transmitter.String()),
	}
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarning:
		return zapcore.WarnLevel
	case LevelError, LevelCritical:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Emit enqueues a structured log event carrying the complete envelope.
func (l *Logger) Emit(level Level, details EventDetails, message EventMessage) {
	fields := detailFields(details)
	if ce := l.log.Check(zapLevel(level), message.Safe); ce != nil {
		ce.Write(fields...)
	}
	if l.audit != nil && message.Raw != message.Safe {
		if ce := l.audit.Check(zapLevel(level), message.Raw); ce != nil {
			ce.Write(fields...)
		}
	}
}

// EmitError emits a terminal structured failure. The error's user message
// and hint are logged at error level with the full envelope.
func (l *Logger) EmitError(details EventDetails, message EventMessage, tag string, hint string) {
	fields := append(detailFields(details), zap.String("error_tag", tag))
	if hint != "" {
		fields = append(fields, zap.String("hint", hint))
	}
	l.log.Error(message.Safe, fields...)
	if l.audit != nil && message.Raw != message.Safe {
		l.audit.Error(message.Raw, fields...)
	}
}

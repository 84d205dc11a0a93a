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

// Package log wires the process zap logger, including an engine.log file
// target that can be enabled and disabled while the sink stays open.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SwappableFileSink is a zapcore.WriteSyncer whose file target can be
// enabled or disabled at runtime without tearing down the logger.
type SwappableFileSink struct {
	mu   sync.RWMutex
	file *os.File
}

// NewSwappableFileSink returns a sink with no file target.
func NewSwappableFileSink() *SwappableFileSink {
	return &SwappableFileSink{}
}

// Enable opens (or reopens) the file target at path, in append mode.
func (s *SwappableFileSink) Enable(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.file
	s.file = f
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Disable detaches and closes the current file target, if any.
func (s *SwappableFileSink) Disable() {
	s.mu.Lock()
	old := s.file
	s.file = nil
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// Write implements io.Writer; with no target it discards.
func (s *SwappableFileSink) Write(p []byte) (int, error) {
	s.mu.RLock()
	f := s.file
	s.mu.RUnlock()
	if f == nil {
		return len(p), nil
	}
	return f.Write(p)
}

// Sync implements zapcore.WriteSyncer.
func (s *SwappableFileSink) Sync() error {
	s.mu.RLock()
	f := s.file
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f.Sync()
}

// NewLogger builds the process logger: console on stderr, plus the given
// swappable file sink at debug level. JSON encoding when json is true.
func NewLogger(level zapcore.Level, json bool, fileSink *SwappableFileSink) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
	}
	if fileSink != nil {
		fileEnc := zapcore.NewJSONEncoder(encCfg)
		cores = append(cores, zapcore.NewCore(fileEnc, fileSink, zapcore.DebugLevel))
	}
	return zap.New(zapcore.NewTee(cores...))
}

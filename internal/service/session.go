package service

import (
	"context"

	"menuboard/internal/domain"

	"go.uber.org/zap"
)

// Session carries per-session state that used to live as globals:
// source mode, cloud credentials, lifecycle context. Created at
// session start, torn down at session end, never shared across
// sessions. Swapping credentials means closing the session and
// building a new one; nothing swaps mid-fetch.
type Session struct {
	Mode      domain.SourceMode
	Endpoint  string
	AccessKey string
	Log       *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(mode domain.SourceMode, endpoint, accessKey string, log *zap.SugaredLogger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		Mode:      mode,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		Log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Session) Context() context.Context { return s.ctx }

// Close cancels pending resolves and any subscription bound to the
// session context. In-flight pushes run to completion; their results
// are simply discarded.
func (s *Session) Close() {
	s.cancel()
}

// CloudConfigured fails fast, before any I/O, when either credential
// is missing.
func (s *Session) CloudConfigured() error {
	if s.Endpoint == "" {
		return &domain.ConfigurationError{Missing: "CLOUD_ENDPOINT_URL"}
	}
	if s.AccessKey == "" {
		return &domain.ConfigurationError{Missing: "CLOUD_ACCESS_KEY"}
	}
	return nil
}

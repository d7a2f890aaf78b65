package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/chorely/chorely/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a****@*******.com"},
		{"a@x.io", "a@*.io"},
		{"bob@localhost", "b**@localhost"},
		{"no-at-sign", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, logger.SanitizedEmail(tt.in), tt.in)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, logger.SanitizeQueryString("refreshToken=abc"))
	assert.True(t, logger.SanitizeQueryString("Email=a@x.com"))
	assert.False(t, logger.SanitizeQueryString("completed=true&page=2"))
	assert.False(t, logger.SanitizeQueryString(""))
}

func TestRedactedAttr(t *testing.T) {
	assert.Equal(t, "[REDACTED]", logger.RedactedAttr("k", "v", "production").Value.String())
	assert.Equal(t, "v", logger.RedactedAttr("k", "v", "development").Value.String())
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	audit := logger.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	audit.LogAuthAttempt(context.Background(), logger.AuditEvent{
		EventType:     logger.EventLogin,
		Email:         "alice@example.com",
		IPAddress:     "203.0.113.1",
		Success:       false,
		FailureReason: "invalid_credentials",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "login", record["event_type"])
	assert.Equal(t, "a****@*******.com", record["email"])
	assert.Equal(t, "invalid_credentials", record["failure_reason"])
	assert.NotContains(t, buf.String(), "alice@example.com")
}

func TestAuditLogger_NilIsNoop(t *testing.T) {
	var audit *logger.AuditLogger
	assert.NotPanics(t, func() {
		audit.LogAuthAttempt(context.Background(), logger.AuditEvent{EventType: logger.EventLogout})
		audit.LogTaskAction(context.Background(), "task_deleted", "u", "t")
	})
}

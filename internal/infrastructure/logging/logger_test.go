package logging

import (
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "launchdock/internal/infrastructure/errors"
)

// recordingLogger captures calls for assertions
type recordingLogger struct {
	messages []string
	fields   [][]interface{}
}

func (r *recordingLogger) Debug(msg string, fields ...interface{}) { r.capture(msg, fields) }
func (r *recordingLogger) Info(msg string, fields ...interface{})  { r.capture(msg, fields) }
func (r *recordingLogger) Warn(msg string, fields ...interface{})  { r.capture(msg, fields) }
func (r *recordingLogger) Error(msg string, fields ...interface{}) { r.capture(msg, fields) }

func (r *recordingLogger) capture(msg string, fields []interface{}) {
	r.messages = append(r.messages, msg)
	r.fields = append(r.fields, fields)
}

func TestFieldsToMapPairs(t *testing.T) {
	result := fieldsToMap([]interface{}{"path", "/scripts/a.py", "exit_code", 0})

	if result["path"] != "/scripts/a.py" {
		t.Errorf("path = %v", result["path"])
	}
	if result["exit_code"] != 0 {
		t.Errorf("exit_code = %v", result["exit_code"])
	}
}

func TestFieldsToMapDanglingKey(t *testing.T) {
	result := fieldsToMap([]interface{}{"key", "value", "dangling"})

	if result["key"] != "value" {
		t.Errorf("key = %v", result["key"])
	}
	if result["field_1"] != "dangling" {
		t.Errorf("Dangling field not preserved: %v", result)
	}
}

func TestFieldsToMapNonStringKey(t *testing.T) {
	result := fieldsToMap([]interface{}{42, "value"})

	if result["field_0"] != 42 || result["field_0_value"] != "value" {
		t.Errorf("Non-string key not preserved: %v", result)
	}
}

func TestLogErrorWithClassifiedError(t *testing.T) {
	logger := &recordingLogger{}
	err := apperrors.NewWithContext("AddScript", fmt.Errorf("disk full"), apperrors.ErrCodeInternal,
		map[string]string{"path": "/scripts/a.py"})

	LogError(logger, err, "AddScript", map[string]interface{}{"extra": "detail"})

	if len(logger.messages) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logger.messages))
	}
	if !strings.HasPrefix(logger.messages[0], "Operation failed:") {
		t.Errorf("Message = %q", logger.messages[0])
	}

	fields := fieldsToMap(logger.fields[0])
	if fields["error_code"] != "INTERNAL" {
		t.Errorf("error_code = %v", fields["error_code"])
	}
	if fields["operation"] != "AddScript" {
		t.Errorf("operation = %v", fields["operation"])
	}
	if fields["path"] != "/scripts/a.py" {
		t.Errorf("Error context not included: %v", fields)
	}
	if fields["extra"] != "detail" {
		t.Errorf("Caller context not included: %v", fields)
	}
}

func TestLogErrorWithPlainError(t *testing.T) {
	logger := &recordingLogger{}

	LogError(logger, fmt.Errorf("boom"), "SomeOp", nil)

	if len(logger.messages) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logger.messages))
	}
	if !strings.HasPrefix(logger.messages[0], "Unexpected error:") {
		t.Errorf("Message = %q", logger.messages[0])
	}

	fields := fieldsToMap(logger.fields[0])
	if fields["operation"] != "SomeOp" {
		t.Errorf("operation = %v", fields["operation"])
	}
}

func TestLogOperation(t *testing.T) {
	logger := &recordingLogger{}

	LogOperation(logger, "ListScripts", 42*time.Millisecond, map[string]interface{}{"count": 3})

	if len(logger.messages) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logger.messages))
	}

	fields := fieldsToMap(logger.fields[0])
	if fields["duration_ms"] != int64(42) {
		t.Errorf("duration_ms = %v", fields["duration_ms"])
	}
	if fields["count"] != 3 {
		t.Errorf("count = %v", fields["count"])
	}
}

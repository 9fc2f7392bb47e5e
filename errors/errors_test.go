package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *AppError
		code    ErrorCode
		status  int
		message string
	}{
		{"model not loaded", ModelNotLoaded(), ErrCodeModelNotLoaded, http.StatusServiceUnavailable, "Model not loaded. Service unavailable."},
		{"validation", Validation("Empty filename"), ErrCodeValidation, http.StatusBadRequest, "Empty filename"},
		{"too large", PayloadTooLarge(10 * 1024 * 1024), ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge, "File too large. Maximum size: 10.0MB"},
		{"processing", Processing(fmt.Errorf("bad header")), ErrCodeProcessing, http.StatusInternalServerError, "Failed to process audio: bad header"},
		{"internal", Internal(fmt.Errorf("nil map")), ErrCodeInternal, http.StatusInternalServerError, "Internal server error"},
		{"busy", ServiceUnavailable(""), ErrCodeServiceUnavailable, http.StatusServiceUnavailable, "Service busy, try again later"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("status = %d, want %d", tc.err.HTTPStatus, tc.status)
			}
			if tc.err.Message != tc.message {
				t.Errorf("message = %q, want %q", tc.err.Message, tc.message)
			}
		})
	}
}

func TestNew_Retryable(t *testing.T) {
	if !New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout).Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeValidation, "bad", http.StatusBadRequest).Retryable {
		t.Error("VALIDATION_ERROR should not be retryable")
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := Validation("Empty filename")
	if got := err.Error(); got != "VALIDATION_ERROR: Empty filename" {
		t.Errorf("Error() = %q", got)
	}
	err.WithCause(fmt.Errorf("root"))
	if !strings.Contains(err.Error(), "(cause: root)") {
		t.Errorf("Error() should include cause, got %q", err.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	root := fmt.Errorf("decoder: unexpected EOF")
	err := Processing(root)
	if !stderrors.Is(err, root) {
		t.Error("errors.Is should find the cause")
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("stage: %w", PayloadTooLarge(1024))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError to be found through wrapping")
	}
	if appErr.Code != ErrCodePayloadTooLarge {
		t.Errorf("code = %s", appErr.Code)
	}
	if !HasCode(wrapped, ErrCodePayloadTooLarge) {
		t.Error("HasCode should be true")
	}
}

func TestFrom(t *testing.T) {
	plain := fmt.Errorf("boom")
	got := From(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("plain error should map to INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Message != "Internal server error" {
		t.Errorf("internal message must be generic, got %q", got.Message)
	}
	if !stderrors.Is(got, plain) {
		t.Error("cause should be preserved")
	}

	v := Validation("x")
	if From(v) != v {
		t.Error("From should return AppErrors unchanged")
	}
}

func TestToResponse_JSON(t *testing.T) {
	err := Processing(fmt.Errorf("secret path /tmp/x")).WithDetail("stage", "normalize")
	data, mErr := json.Marshal(err.ToResponse())
	if mErr != nil {
		t.Fatalf("marshal: %v", mErr)
	}
	var body map[string]any
	if uErr := json.Unmarshal(data, &body); uErr != nil {
		t.Fatalf("unmarshal: %v", uErr)
	}
	if body["error"] != "Failed to process audio: secret path /tmp/x" {
		t.Errorf("error = %v", body["error"])
	}
	if body["code"] != string(ErrCodeProcessing) {
		t.Errorf("code = %v", body["code"])
	}
	if _, ok := body["retryable"]; ok {
		t.Error("retryable should be omitted when false")
	}
	details, _ := body["details"].(map[string]any)
	if details["stage"] != "normalize" {
		t.Errorf("details = %v", body["details"])
	}
}

func TestPayloadTooLarge_Message(t *testing.T) {
	err := PayloadTooLarge(5 * 1024 * 1024)
	if err.Message != "File too large. Maximum size: 5.0MB" {
		t.Errorf("message = %q", err.Message)
	}
	if err.Details["max_bytes"] != int64(5*1024*1024) {
		t.Errorf("max_bytes = %v", err.Details["max_bytes"])
	}
}

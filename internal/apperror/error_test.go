package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(CodePoolNotFound, WithContext("0xA/0xB"))

	if err.Code != CodePoolNotFound {
		t.Errorf("Code = %s, want %s", err.Code, CodePoolNotFound)
	}
	if err.Context != "0xA/0xB" {
		t.Errorf("Context = %q, want pool pair", err.Context)
	}
	if err.Message == "" {
		t.Error("Message should default from the code registry")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodeSlippageExceeded, WithContext("out 5 below minimum 10"))

	if !errors.Is(err, New(CodeSlippageExceeded)) {
		t.Error("errors.Is should match AppErrors by code")
	}
	if errors.Is(err, New(CodeDeadlineExpired)) {
		t.Error("errors.Is should not match different codes")
	}
}

func TestWrapPassesAppErrorsThrough(t *testing.T) {
	inner := New(CodeInsufficientBalance, WithContext("token 0xT owner 0xO"))

	wrapped := Wrap(inner, CodeInternalError, "vault payout")
	if wrapped.Code != CodeInsufficientBalance {
		t.Errorf("Code = %s, token-book failures must propagate verbatim", wrapped.Code)
	}
}

func TestWrapPlainError(t *testing.T) {
	cause := errors.New("disk full")

	wrapped := Wrap(cause, CodeStoreError, "insert pool")
	if wrapped.Code != CodeStoreError {
		t.Errorf("Code = %s, want %s", wrapped.Code, CodeStoreError)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(CodeOpportunityStale)); got != CodeOpportunityStale {
		t.Errorf("GetCode = %s, want %s", got, CodeOpportunityStale)
	}
	if got := GetCode(errors.New("plain")); got != CodeUnknownError {
		t.Errorf("GetCode(plain) = %s, want %s", got, CodeUnknownError)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodePoolNotFound, http.StatusNotFound},
		{CodeOpportunityNotFound, http.StatusNotFound},
		{CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := New(tt.code).StatusCode(); got != tt.want {
			t.Errorf("StatusCode(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

// Package errors tests for error code handling.
package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

// TestNewError verifies error creation and formatting.
func TestNewError(t *testing.T) {
	err := New(ErrSyncOffline, "device is offline")

	if err.Code != ErrSyncOffline {
		t.Errorf("Code = %s, want ErrSyncOffline", err.Code)
	}
	if !strings.Contains(err.Error(), "SYNC_OFFLINE") {
		t.Errorf("Error() should contain the code: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "device is offline") {
		t.Errorf("Error() should contain the message: %s", err.Error())
	}
}

// TestWrapUnwrap verifies wrapped errors remain reachable.
func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrAPIRequest, "products.list failed", cause)

	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause should satisfy errors.Is")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Error() should include the cause: %s", err.Error())
	}
}

// TestIs verifies code matching.
func TestIs(t *testing.T) {
	err := New(ErrSyncFailed, "sync failed")

	if !Is(err, ErrSyncFailed) {
		t.Error("Is() should match the assigned code")
	}
	if Is(err, ErrSyncOffline) {
		t.Error("Is() should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrSyncFailed) {
		t.Error("Is() should not match a non-AppError")
	}
}

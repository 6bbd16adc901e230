// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	"context"
	"fmt"
	"testing"
)

func Test_ErrorValidations(t *testing.T) {
	err := fmt.Errorf("%s", "test error from fmt")
	if GetErrCode(err) != Unknown {
		t.Errorf("expected error type unknown, got %v", GetErrCode(err))
	}

	err = New("test error from errors pkg")
	if GetErrCode(err) != Unknown {
		t.Errorf("expected error type unknown, got %v", GetErrCode(err))
	}

	err = Wrap(AlreadyExists, "test wrap error from errors pkg")
	if !IsAlreadyExists(err) {
		t.Errorf("expected error type Already exists")
	}

	err = Wrapf(NotFound, "%s", "test wrapf error from errors pkg")
	if !IsNotFound(err) {
		t.Errorf("expected error type Not Found")
	}

	err = Wrapf(Interrupted, "sleep interrupted: %s", context.Canceled)
	if !IsInterrupted(err) {
		t.Errorf("expected error type Interrupted")
	}

	err = Wrap(Unavailable, "store not reachable")
	if !IsUnavailable(err) {
		t.Errorf("expected error type Unavailable")
	}

	if !Is(context.Canceled, context.Canceled) {
		t.Errorf("expected Is to match identical errors")
	}
}

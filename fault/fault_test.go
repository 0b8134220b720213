// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/bitmark-inc/chainstore/fault"
)

var (
	ErrOne fault.ProgrammerError = "programmer one"
	ErrTwo fault.ChainError      = "chain one"
	ErrSio fault.IoError         = "io one"
)

// test that the error classes can be distinguished without string matching
func TestClassification(t *testing.T) {
	errorList := []struct {
		err        error
		programmer bool
		chain      bool
		io         bool
	}{
		{ErrOne, true, false, false},
		{ErrTwo, false, true, false},
		{ErrSio, false, false, true},
		{fault.ErrNotOpen, true, false, false},
		{fault.ErrUnknownKeypair, false, true, false},
		{fault.ErrNotFound, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsProgrammerError(err) != e.programmer {
			t.Errorf("%d: expected programmer == %v for err = %v", i, e.programmer, err)
		}
		if fault.IsChainError(err) != e.chain {
			t.Errorf("%d: expected chain == %v for err = %v", i, e.chain, err)
		}
		if fault.IsIoError(err) != e.io {
			t.Errorf("%d: expected io == %v for err = %v", i, e.io, err)
		}
	}
}

func TestIsNotFound(t *testing.T) {
	if !fault.IsNotFound(fault.ErrNotFound) {
		t.Error("expected ErrNotFound to be reported as not-found")
	}
	if fault.IsNotFound(ErrSio) {
		t.Error("unrelated io error should not be reported as not-found")
	}
}

package assert

import (
	"github.com/wippyai/wasm-asserts/errors"
	"github.com/wippyai/wasm-asserts/wasm"
)

// Names of the aggregate entry point and the host functions it imports.
const (
	EntryName      = "run_all"
	ReportFunc     = "report"
	ExpectTrapFunc = "expect_trap"
)

var (
	// report(ordinal i32, passed i32)
	reportType = wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}}
	// expect_trap(ordinal i32) -> passed i32
	expectTrapType = wasm.FuncType{
		Params:  []wasm.ValType{wasm.ValI32},
		Results: []wasm.ValType{wasm.ValI32},
	}
	entryType = wasm.FuncType{Results: []wasm.ValType{wasm.ValI32}}
)

// emitAggregator defines run_all, which drives every check in handle order,
// reports each outcome to the host and returns the number of failures.
func emitAggregator(t *Target, handles []Handle) error {
	const (
		passed = 0
		failed = 1
	)

	c := wasm.NewCode()
	for _, h := range handles {
		switch h.Mode {
		case ModeValue:
			t.callCheck(c, h)
		case ModeTrap:
			c.I32Const(int32(h.Ordinal))
			if err := t.callHost(c, ExpectTrapFunc, expectTrapType); err != nil {
				return err
			}
		}
		c.LocalSet(passed)

		c.I32Const(int32(h.Ordinal)).LocalGet(passed)
		if err := t.callHost(c, ReportFunc, reportType); err != nil {
			return err
		}

		c.LocalGet(failed).
			LocalGet(passed).Op(wasm.OpI32Eqz).
			Op(wasm.OpI32Add).
			LocalSet(failed)
	}
	c.LocalGet(failed)

	locals := []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI32}}
	if err := t.addEntry(EntryName, entryType, locals, c); err != nil {
		return errors.Wrap(errors.PhaseAggregate, errors.KindDuplicate, err, "define "+EntryName)
	}
	return nil
}

// Package assert turns an ordered collection of WebAssembly test assertions
// into a textual dump and into a generated check module.
//
// Assertions implement Node. A Collection owns them; the most recently added
// node is visited first by Dump and Generate alike:
//
//	c := assert.NewCollection()
//	c.Add(&assert.Return{Action: assert.Invoke("add", assert.I32(1), assert.I32(2)), Expected: []assert.Value{assert.I32(3)}})
//	c.Add(&assert.Trap{Action: assert.Invoke("div", assert.I32(1), assert.I32(0)), Message: "integer divide by zero"})
//
//	c.Dump(os.Stdout)
//
//	target := assert.NewTarget(sigs)
//	handles, err := c.Generate(target)
//	bin := target.Bytes()
//
// # Generated module
//
// Each assertion becomes an exported function assert_<n>, numbered in
// traversal order. Value checks return i32 1 on pass. Trap checks return
// nothing and are invoked by the host, which observes the trap.
//
// The aggregator run_all calls every check in the same order, reports each
// outcome through harness.report(ordinal, passed), routes trap checks through
// harness.expect_trap(ordinal), and returns the number of failures.
//
// The module under test is imported under the name "test" (see
// WithSubjectName); each invoked export is imported once.
//
// # Variants
//
//	Return     every result equals its expected value (floats bitwise)
//	ReturnNaN  a single float result is a canonical or arithmetic NaN
//	Approx     a single float result is within an absolute tolerance
//	Trap       the invocation traps
package assert

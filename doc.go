// Package wasmasserts turns WebAssembly assertion scripts into generated
// check modules and runs them with wazero.
//
// An assertion ("assert_return", "assert_trap" and friends) is a node that
// can describe itself and emit a wasm function checking one call against a
// subject module. Nodes live in a collection that visits the most recently
// added node first; a single aggregator function is emitted after all checks
// and calls them in that same order.
//
// # Architecture Overview
//
//	wasmasserts/
//	├── assert/          Nodes, the collection and the generated module target
//	├── script/          wast2json JSON and YAML scripts to collections
//	├── harness/         Links subject, host imports and checks in wazero
//	├── wasm/            Core wasm module builder and binary encoder
//	├── errors/          Structured error types
//	├── testbed/         Subject modules used by tests
//	├── bench/           Benchmark driver and the Fibonacci backend
//	└── cmd/
//	    ├── assertgen/   dump, generate, run and browse commands
//	    └── perfdriver/  [-w|-c] <integer> timing driver
//
// # Quick Start
//
//	c := &assert.Collection{}
//	c.Add(&assert.Return{
//	    Action:   assert.Action{Export: "add", Args: []assert.Value{assert.I32(1), assert.I32(2)}},
//	    Expected: []assert.Value{assert.I32(3)},
//	})
//
//	h, err := harness.New(ctx, harness.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	rep, err := h.Run(ctx, subjectBytes, c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(rep.Failed) // 0
//
// # Generated Module
//
// The generated module imports every exercised export from the subject
// (module "test" by default) plus harness.report and harness.expect_trap.
// Value checks export assert_<n> returning 1 on success; trap checks export
// assert_<n> with no results and are invoked by the host through
// expect_trap. run_all returns the number of failed checks.
//
// # Thread Safety
//
// Collection and Target are not safe for concurrent use. A Harness may open
// sessions from several goroutines; a Session belongs to one goroutine.
package wasmasserts

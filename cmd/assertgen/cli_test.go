package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/harness"
	"github.com/wippyai/wasm-asserts/testbed"
)

const arithScript = `{"source_filename": "arith.wast", "commands": [
  {"type": "module", "line": 1, "filename": "arith.wasm"},
  {"type": "assert_return", "line": 2, "action": {"type": "invoke", "field": "add", "args": [{"type": "i32", "value": "1"}, {"type": "i32", "value": "2"}]}, "expected": [{"type": "i32", "value": "%s"}]},
  {"type": "assert_trap", "line": 3, "action": {"type": "invoke", "field": "div_s", "args": [{"type": "i32", "value": "1"}, {"type": "i32", "value": "0"}]}, "text": "integer divide by zero"},
  {"type": "assert_return", "line": 4, "action": {"type": "invoke", "field": "nan", "args": []}, "expected": [{"type": "f32", "value": "nan:canonical"}]},
  {"type": "module", "line": 6, "filename": "missing.wasm"},
  {"type": "assert_return", "line": 7, "action": {"type": "invoke", "field": "id", "args": [{"type": "i64", "value": "7"}]}, "expected": [{"type": "i64", "value": "7"}]}
]}`

// writeWorkspace writes the script and the arith module into a temp dir.
// expected is the sum the add assertion expects.
func writeWorkspace(t *testing.T, expected string) string {
	t.Helper()
	dir := t.TempDir()
	script := strings.Replace(arithScript, "%s", expected, 1)
	if err := os.WriteFile(filepath.Join(dir, "arith.json"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arith.wasm"), testbed.Arith(), 0o644); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "arith.json")
}

func resetGlobals(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()
	t.Cleanup(func() {
		suiteName = ""
		outDir = "."
		infer = false
		runConfig = harness.Config{}
	})
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func TestDumpCmd(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")

	cmd, out := newTestCmd()
	if err := runDump(cmd, []string{path}); err != nil {
		t.Fatalf("runDump: %v", err)
	}

	want := `;; arith.wasm (line 1): 3 assertions, 0 skipped
(assert_return (invoke "nan") (f32.const nan:canonical))
(assert_trap (invoke "div_s" (i32.const 1) (i32.const 0)) "integer divide by zero")
(assert_return (invoke "add" (i32.const 1) (i32.const 2)) (i32.const 3))

;; missing.wasm (line 6): 1 assertions, 0 skipped
(assert_return (invoke "id" (i64.const 7)) (i64.const 7))
`
	if out.String() != want {
		t.Errorf("dump =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestDumpCmd_SuiteFilter(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")

	suiteName = "missing"
	cmd, out := newTestCmd()
	if err := runDump(cmd, []string{path}); err != nil {
		t.Fatalf("runDump: %v", err)
	}
	if strings.Contains(out.String(), "arith.wasm") {
		t.Errorf("filter ignored: %s", out.String())
	}

	suiteName = "nope"
	if err := runDump(cmd, []string{path}); err == nil {
		t.Error("unknown suite should fail")
	}
}

func TestGenerateCmd(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")
	outDir = filepath.Join(t.TempDir(), "gen")

	cmd, out := newTestCmd()
	if err := runGenerate(cmd, []string{path}); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	// The missing module's suite is generated from inferred signatures.
	for _, name := range []string{"arith.asserts.wasm", "missing.asserts.wasm"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !bytes.HasPrefix(data, []byte("\x00asm")) {
			t.Errorf("%s is not a wasm module", name)
		}
	}
	if !strings.Contains(out.String(), "arith.asserts.wasm: 3 checks") {
		t.Errorf("output = %q", out.String())
	}
}

func TestGenerateCmd_SignatureMismatch(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()
	script := `{"commands": [
		{"type": "module", "line": 1, "filename": "arith.wasm"},
		{"type": "assert_return", "line": 2, "action": {"type": "invoke", "field": "add", "args": [{"type": "i64", "value": "1"}]}, "expected": []}
	]}`
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "arith.wasm"), testbed.Arith(), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir = dir

	cmd, _ := newTestCmd()
	if err := runGenerate(cmd, []string{filepath.Join(dir, "bad.json")}); err == nil {
		t.Error("expected signature mismatch")
	}

	// Inference accepts whatever the script says.
	infer = true
	if err := runGenerate(cmd, []string{filepath.Join(dir, "bad.json")}); err != nil {
		t.Errorf("inferred generate: %v", err)
	}
}

func TestRunCmd(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")
	suiteName = "arith"

	cmd, out := newTestCmd()
	if err := runRun(cmd, []string{path}); err != nil {
		t.Fatalf("runRun: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "3 checks, 0 failed") {
		t.Errorf("output = %q", out.String())
	}
	if strings.Contains(out.String(), "\x1b[") {
		t.Error("report colored for a non-terminal writer")
	}
}

func TestRunCmd_Failure(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "4")
	suiteName = "arith"

	cmd, out := newTestCmd()
	err := runRun(cmd, []string{path})
	if err == nil || err.Error() != "1 checks failed" {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out.String(), "FAIL   2 (assert_return (invoke \"add\"") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunCmd_MissingModule(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")
	suiteName = "missing"

	cmd, _ := newTestCmd()
	if err := runRun(cmd, []string{path}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowseModel(t *testing.T) {
	resetGlobals(t)
	path := writeWorkspace(t, "3")

	m := newBrowseModel(path)
	if m.View() != "Loading script..." {
		t.Errorf("initial view = %q", m.View())
	}

	m.Update(m.load())
	defer m.close()
	if m.err != nil {
		t.Fatalf("load: %v", m.err)
	}
	if len(m.items) != 4 || len(m.visible) != 4 {
		t.Fatalf("items = %+v", m.items)
	}
	if m.items[3].runnable {
		t.Error("suite without module marked runnable")
	}

	// Filter down to the trap check and run it.
	m.Update(key("/"))
	m.Update(key("div"))
	if len(m.visible) != 1 {
		t.Fatalf("visible after filter = %v", m.visible)
	}
	m.Update(key("enter"))
	if m.state != stateList {
		t.Fatalf("state = %v after closing filter", m.state)
	}

	_, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("enter on a runnable check returned no command")
	}
	m.Update(cmd())
	if m.state != stateResult || m.result == nil || !m.result.Passed {
		t.Errorf("result = %+v, err = %v", m.result, m.err)
	}
	if !strings.Contains(m.View(), "PASS") {
		t.Errorf("view = %q", m.View())
	}

	m.Update(key("esc"))
	if m.state != stateList {
		t.Errorf("state = %v after esc", m.state)
	}
}

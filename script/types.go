// Package script loads assertion command scripts into suites of
// assert.Collection, one per module. Scripts use the wast2json JSON
// command layout, or the same layout in YAML.
package script

// File is the on-disk shape of a command script, as produced by wast2json
// or written by hand in YAML.
type File struct {
	SourceFilename string    `json:"source_filename" yaml:"source_filename"`
	Commands       []Command `json:"commands" yaml:"commands"`
}

// Command is one script entry. Only the fields relevant to its Type are set.
type Command struct {
	Action     *ActionSpec `json:"action,omitempty" yaml:"action,omitempty"`
	Type       string      `json:"type" yaml:"type"`
	Filename   string      `json:"filename,omitempty" yaml:"filename,omitempty"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Text       string      `json:"text,omitempty" yaml:"text,omitempty"`
	ModuleType string      `json:"module_type,omitempty" yaml:"module_type,omitempty"`
	Expected   []ValueSpec `json:"expected,omitempty" yaml:"expected,omitempty"`
	Tolerance  float64     `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Line       int         `json:"line" yaml:"line"`
}

// ActionSpec is an action attached to an assertion command.
type ActionSpec struct {
	Type   string      `json:"type" yaml:"type"`
	Module string      `json:"module,omitempty" yaml:"module,omitempty"`
	Field  string      `json:"field" yaml:"field"`
	Args   []ValueSpec `json:"args,omitempty" yaml:"args,omitempty"`
}

// ValueSpec is a typed constant. Value holds the unsigned decimal bit
// pattern (wast2json) or a NaN class; Literal holds a plain number.
type ValueSpec struct {
	Type    string `json:"type" yaml:"type"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Command types understood by the loader.
const (
	CmdModule             = "module"
	CmdAssertReturn       = "assert_return"
	CmdAssertCanonicalNaN = "assert_return_canonical_nan"
	CmdAssertArithNaN     = "assert_return_arithmetic_nan"
	CmdAssertTrap         = "assert_trap"
	CmdAssertApprox       = "assert_approx"

	actionInvoke = "invoke"
)

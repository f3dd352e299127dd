package script

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-asserts/assert"
	"github.com/wippyai/wasm-asserts/errors"
)

// Format selects the script encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Skip records a command the loader does not turn into an assertion.
type Skip struct {
	Type   string
	Reason string
	Line   int
}

// Suite is the set of assertions that target one module.
type Suite struct {
	Collection *assert.Collection
	// Module is the module filename as written in the script.
	Module string
	// Path is Module resolved against the script directory.
	Path    string
	Skipped []Skip
	Line    int
}

// Name returns the module filename without directory and extension.
func (s *Suite) Name() string {
	base := filepath.Base(s.Module)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Script is a parsed command script.
type Script struct {
	Source string
	suites []*Suite
	// commands seen before the first module
	orphans []Skip
}

// Suites returns one suite per module command, in script order.
func (s *Script) Suites() []*Suite {
	return s.suites
}

// Orphans returns assertions that appeared before any module command.
func (s *Script) Orphans() []Skip {
	return s.orphans
}

// Load reads a script file, choosing the format from its extension.
// Module paths are resolved relative to the script's directory.
func Load(path string) (*Script, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseParse, "script extension "+strconv.Quote(filepath.Ext(path)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read script "+path)
	}

	s, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for _, suite := range s.suites {
		if suite.Module != "" && !filepath.IsAbs(suite.Module) {
			suite.Path = filepath.Join(dir, suite.Module)
		}
	}
	if s.Source == "" {
		s.Source = path
	}
	return s, nil
}

// Parse decodes a script and builds its suites.
func Parse(data []byte, format Format) (*Script, error) {
	var f File
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &f)
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, errors.Unsupported(errors.PhaseParse, "script format "+strconv.Quote(string(format)))
	}
	if err != nil {
		return nil, errors.ParseFailed(string(format)+" script", err)
	}
	return Build(&f)
}

// Build turns decoded commands into suites. Assertions bind to the most
// recent module command.
func Build(f *File) (*Script, error) {
	log := Logger()
	s := &Script{Source: f.SourceFilename}
	var cur *Suite

	for i := range f.Commands {
		cmd := &f.Commands[i]
		if cmd.Type == CmdModule {
			cur = &Suite{
				Collection: assert.NewCollection(),
				Module:     cmd.Filename,
				Path:       cmd.Filename,
				Line:       cmd.Line,
			}
			s.suites = append(s.suites, cur)
			continue
		}

		node, reason, err := cmd.node()
		if err != nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Path(cmd.Type, "line "+strconv.Itoa(cmd.Line)).
				Detail("build assertion").
				Cause(err).
				Build()
		}
		if node == nil {
			skip := Skip{Type: cmd.Type, Reason: reason, Line: cmd.Line}
			if cur == nil {
				s.orphans = append(s.orphans, skip)
			} else {
				cur.Skipped = append(cur.Skipped, skip)
			}
			log.Debug("skipped command", zap.String("type", cmd.Type), zap.Int("line", cmd.Line), zap.String("reason", reason))
			continue
		}
		if cur == nil {
			s.orphans = append(s.orphans, Skip{Type: cmd.Type, Reason: "no module", Line: cmd.Line})
			continue
		}
		cur.Collection.Add(node)
	}

	log.Debug("script built", zap.String("source", s.Source), zap.Int("suites", len(s.suites)))
	return s, nil
}

// node maps a command to an assertion. A nil node with a reason means the
// command is skipped.
func (c *Command) node() (assert.Node, string, error) {
	switch c.Type {
	case CmdAssertReturn, CmdAssertCanonicalNaN, CmdAssertArithNaN, CmdAssertTrap, CmdAssertApprox:
	default:
		return nil, "unsupported command", nil
	}
	if c.Action == nil {
		return nil, "", errors.InvalidInput(errors.PhaseParse, "missing action")
	}
	if c.Action.Type != actionInvoke {
		return nil, "action " + c.Action.Type, nil
	}
	if c.Action.Module != "" {
		return nil, "named module " + c.Action.Module, nil
	}

	action, err := c.Action.toAction()
	if err != nil {
		return nil, "", err
	}

	switch c.Type {
	case CmdAssertReturn:
		expected, err := c.expected()
		if err != nil {
			return nil, "", err
		}
		if len(expected) == 1 && expected[0].NaN != assert.NaNNone {
			return &assert.ReturnNaN{Action: action, Type: expected[0].Type, Kind: expected[0].NaN}, "", nil
		}
		return &assert.Return{Action: action, Expected: expected}, "", nil

	case CmdAssertCanonicalNaN, CmdAssertArithNaN:
		if len(c.Expected) != 1 {
			return nil, "", errors.InvalidInput(errors.PhaseParse, "NaN assertion needs exactly one expected type")
		}
		vt, err := c.Expected[0].valType()
		if err != nil {
			return nil, "", err
		}
		kind := assert.NaNCanonical
		if c.Type == CmdAssertArithNaN {
			kind = assert.NaNArithmetic
		}
		return &assert.ReturnNaN{Action: action, Type: vt, Kind: kind}, "", nil

	case CmdAssertTrap:
		return &assert.Trap{Action: action, Message: c.Text}, "", nil

	default: // CmdAssertApprox
		expected, err := c.expected()
		if err != nil {
			return nil, "", err
		}
		if len(expected) != 1 {
			return nil, "", errors.InvalidInput(errors.PhaseParse, "approx needs exactly one expected value")
		}
		return &assert.Approx{Action: action, Expected: expected[0], Tolerance: c.Tolerance}, "", nil
	}
}

func (c *Command) expected() ([]assert.Value, error) {
	out := make([]assert.Value, len(c.Expected))
	for i, v := range c.Expected {
		val, err := v.toValue(true)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (a *ActionSpec) toAction() (assert.Action, error) {
	args := make([]assert.Value, len(a.Args))
	for i, v := range a.Args {
		val, err := v.toValue(false)
		if err != nil {
			return assert.Action{}, err
		}
		args[i] = val
	}
	return assert.Invoke(a.Field, args...), nil
}

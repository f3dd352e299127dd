package assert

import (
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-asserts/errors"
)

// Collection owns an ordered set of assertions. The most recently added
// node is visited first by every traversal.
//
// Collection is not safe for concurrent use.
type Collection struct {
	// stack in insertion order; traversal walks it from the top
	nodes []Node
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add takes ownership of n and makes it the traversal head.
// Nodes are neither validated nor deduplicated. A nil node is ignored.
func (c *Collection) Add(n Node) {
	if n == nil {
		return
	}
	c.nodes = append(c.nodes, n)
}

// Len returns the number of owned nodes.
func (c *Collection) Len() int {
	return len(c.nodes)
}

// All yields nodes head to tail (reverse insertion order) with their
// traversal position.
func (c *Collection) All() iter.Seq2[int, Node] {
	return func(yield func(int, Node) bool) {
		pos := 0
		for i := len(c.nodes) - 1; i >= 0; i-- {
			if !yield(pos, c.nodes[i]) {
				return
			}
			pos++
		}
	}
}

// Reset releases every owned node.
func (c *Collection) Reset() {
	clear(c.nodes)
	c.nodes = c.nodes[:0]
}

// Dump writes one description per line, head to tail.
func (c *Collection) Dump(w io.Writer) error {
	for _, n := range c.All() {
		if _, err := io.WriteString(w, n.Describe()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// String returns the Dump text.
func (c *Collection) String() string {
	var b strings.Builder
	_ = c.Dump(&b)
	return b.String()
}

// Generate emits every node's check into t, in traversal order, and then
// the run_all aggregator that calls them in the same order. A failing node
// aborts generation before the aggregator is emitted, and t is left as it
// was before the call.
//
// When t infers signatures, the nodes that determine an export's results
// are scanned first, so a trap check visited earlier imports the same
// signature as the value checks on that export.
func (c *Collection) Generate(t *Target) (handles []Handle, err error) {
	log := Logger()
	start := t.mark()
	defer func() {
		if err != nil {
			t.reset(start)
		}
	}()

	if t.Inferring() {
		for _, n := range c.All() {
			if h, ok := n.(signatureHinter); ok {
				t.hint(h.signatureHint())
			}
		}
	}

	handles = make([]Handle, 0, len(c.nodes))
	for pos, n := range c.All() {
		h, err := n.Codegen(t)
		if err != nil {
			log.Debug("codegen failed", zap.Int("position", pos), zap.Error(err))
			return nil, errors.Assertion(pos, err)
		}
		h.Description = n.Describe()
		handles = append(handles, h)
		log.Debug("generated check",
			zap.Int("ordinal", h.Ordinal),
			zap.String("export", h.Export),
			zap.Stringer("mode", h.Mode),
		)
	}

	if err := emitAggregator(t, handles); err != nil {
		return nil, err
	}
	log.Debug("generated aggregator", zap.String("export", EntryName), zap.Int("checks", len(handles)))
	return handles, nil
}

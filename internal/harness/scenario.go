package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a layout tree, a
// sequence of mutation passes, and assertions over the resulting
// field states and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden
	// file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Tree is a path to a CUE tree-spec file, relative to the
	// scenario file location. Mutually exclusive with Nodes.
	Tree string `yaml:"tree,omitempty"`

	// Nodes declares the tree inline: name plus optional parent.
	// Mutually exclusive with Tree.
	Nodes []NodeDecl `yaml:"nodes,omitempty"`

	// Styles supplies per-node sizing. Nodes absent from the map get
	// the zero style.
	Styles map[string]StyleDecl `yaml:"styles,omitempty"`

	// Passes are mutation batches. Each batch is applied and followed
	// by one recompute pass. An initial settling pass always runs
	// before the first batch.
	Passes []PassStep `yaml:"passes"`

	// Assertions validate the final state and the recorded trace.
	Assertions []Assertion `yaml:"assertions"`
}

// NodeDecl declares one inline tree node.
type NodeDecl struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// StyleDecl is a node's sizing input.
type StyleDecl struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PassStep is one batch of mutations followed by a recompute pass.
type PassStep struct {
	Mutations []Mutation `yaml:"mutations"`
}

// Mutation is a single external change. Exactly one of the members
// must be set.
type Mutation struct {
	SetStyle  *StyleMutation  `yaml:"set_style,omitempty"`
	SetOffset *OffsetMutation `yaml:"set_offset,omitempty"`
	SetZoom   *ZoomMutation   `yaml:"set_zoom,omitempty"`
	Insert    *InsertMutation `yaml:"insert,omitempty"`
	Remove    *RemoveMutation `yaml:"remove,omitempty"`
}

// StyleMutation replaces a node's style input.
type StyleMutation struct {
	Node   string `yaml:"node"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// OffsetMutation replaces a node's offset input.
type OffsetMutation struct {
	Node string `yaml:"node"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
}

// ZoomMutation replaces the viewport zoom, in percent.
type ZoomMutation struct {
	Percent int `yaml:"percent"`
}

// InsertMutation appends a new child node.
type InsertMutation struct {
	Parent string `yaml:"parent"`
	Node   string `yaml:"node"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RemoveMutation detaches a node and destroys its subtree.
type RemoveMutation struct {
	Node string `yaml:"node"`
}

// Assertion validates final field state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Field is a "node.field" key (field_value, dirty, clean).
	Field string `yaml:"field,omitempty"`

	// Value is the expected value (field_value).
	Value any `yaml:"value,omitempty"`

	// Kind filters trace events (trace_contains).
	Kind string `yaml:"kind,omitempty"`

	// Changed, when set, must match the event flag (trace_contains).
	Changed *bool `yaml:"changed,omitempty"`

	// Fields lists "node.field" keys whose set events must appear in
	// this order (trace_order).
	Fields []string `yaml:"fields,omitempty"`

	// Pass selects a recompute pass, 1-based over the scenario's
	// passes; 0 selects the initial settling pass. Nil means the last
	// pass (recompute_count).
	Pass *int `yaml:"pass,omitempty"`

	// Count is the expected recompute count (recompute_count).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertFieldValue     = "field_value"
	AssertDirty          = "dirty"
	AssertClean          = "clean"
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertRecomputeCount = "recompute_count"
)

// LoadScenario reads and parses a scenario YAML file. Returns an error
// if the file doesn't exist, is malformed, contains unknown fields
// (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the tree-spec path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs
	// "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Tree != "" && !filepath.IsAbs(scenario.Tree) && basePath != "" {
		scenario.Tree = filepath.Join(basePath, scenario.Tree)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Tree == "" && len(s.Nodes) == 0:
		return fmt.Errorf("either tree or nodes is required")
	case s.Tree != "" && len(s.Nodes) > 0:
		return fmt.Errorf("tree and nodes are mutually exclusive")
	case s.Tree != "":
		if _, err := os.Stat(s.Tree); os.IsNotExist(err) {
			return fmt.Errorf("tree spec file not found: %s", s.Tree)
		}
	}

	for i, decl := range s.Nodes {
		if decl.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
	}

	for i, pass := range s.Passes {
		if len(pass.Mutations) == 0 {
			return fmt.Errorf("passes[%d]: mutations list is required and must be non-empty", i)
		}
		for j, m := range pass.Mutations {
			if err := validateMutation(&m); err != nil {
				return fmt.Errorf("passes[%d].mutations[%d]: %w", i, j, err)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(&assertion); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

// validateMutation checks that exactly one mutation member is set.
func validateMutation(m *Mutation) error {
	set := 0
	if m.SetStyle != nil {
		set++
		if m.SetStyle.Node == "" {
			return fmt.Errorf("set_style: node is required")
		}
	}
	if m.SetOffset != nil {
		set++
		if m.SetOffset.Node == "" {
			return fmt.Errorf("set_offset: node is required")
		}
	}
	if m.SetZoom != nil {
		set++
	}
	if m.Insert != nil {
		set++
		if m.Insert.Parent == "" || m.Insert.Node == "" {
			return fmt.Errorf("insert: parent and node are required")
		}
	}
	if m.Remove != nil {
		set++
		if m.Remove.Node == "" {
			return fmt.Errorf("remove: node is required")
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one mutation kind is required, got %d", set)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("type is required")
	}

	switch a.Type {
	case AssertFieldValue:
		if a.Field == "" {
			return fmt.Errorf("field is required for field_value")
		}
		if a.Value == nil {
			return fmt.Errorf("value is required for field_value")
		}
	case AssertDirty, AssertClean:
		if a.Field == "" {
			return fmt.Errorf("field is required for %s", a.Type)
		}
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("kind is required for trace_contains")
		}
	case AssertTraceOrder:
		if len(a.Fields) < 2 {
			return fmt.Errorf("at least two fields are required for trace_order")
		}
	case AssertRecomputeCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for recompute_count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	return nil
}

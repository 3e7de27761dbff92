package ir

// TreeSpec is a compiled host-tree definition: the node hierarchy plus
// the protected-field wiring between nodes.
type TreeSpec struct {
	Name  string     `json:"name"`
	Nodes []NodeSpec `json:"nodes"`
}

// NodeSpec declares one node and its protected fields. Parent is empty
// for the root node.
type NodeSpec struct {
	Name   string      `json:"name"`
	Parent string      `json:"parent,omitempty"`
	Fields []FieldDecl `json:"fields"`
}

// FieldDecl declares one protected field on a node: its dependency set
// (fields that must be clean before it recomputes) and its invalidation
// set (fields marked dirty when its value changes).
type FieldDecl struct {
	Name        string     `json:"name"`
	DependsOn   []FieldKey `json:"depends_on,omitempty"`
	Invalidates []FieldKey `json:"invalidates,omitempty"`
}

// Node returns the node spec with the given name, or nil.
func (s *TreeSpec) Node(name string) *NodeSpec {
	for i := range s.Nodes {
		if s.Nodes[i].Name == name {
			return &s.Nodes[i]
		}
	}
	return nil
}

// Field returns the field declaration with the given name, or nil.
func (n *NodeSpec) Field(name string) *FieldDecl {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			return &n.Fields[i]
		}
	}
	return nil
}

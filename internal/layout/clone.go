package layout

import (
	"fmt"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
)

// Clone builds a shadow tree with the same structure in a fresh
// Registry and transplants every field's (value, dirty) state into it.
// The shadow is an independent context: nothing ever propagates across
// the two registries.
//
// Structure is rebuilt first and field state copied second, because
// structural inserts propagate dirtiness inside the shadow and would
// otherwise clobber the transplanted flags.
func (t *Tree) Clone(opts ...field.Option) *Tree {
	shadow := New(t.root.Name, Style{}, opts...)

	var build func(src, dst *Node)
	build = func(src, dst *Node) {
		for _, kid := range src.Kids() {
			shadowKid, err := shadow.AddChild(dst, kid.Name, Style{})
			if err != nil {
				// Names were unique in the source tree.
				panic(fmt.Sprintf("layout: clone: %v", err))
			}
			build(kid, shadowKid)
		}
	}
	build(t.root, shadow.root)

	shadow.zoom.CopyFrom(t.zoom)
	var transplant func(src, dst *Node)
	transplant = func(src, dst *Node) {
		dst.Style.CopyFrom(src.Style)
		dst.Offset.CopyFrom(src.Offset)
		dst.Width.CopyFrom(src.Width)
		dst.X.CopyFrom(src.X)
		dst.Y.CopyFrom(src.Y)
		dst.Height.CopyFrom(src.Height)
		srcKids := src.Kids()
		dstKids := dst.Kids()
		for i := range srcKids {
			transplant(srcKids[i], dstKids[i])
		}
	}
	transplant(t.root, shadow.root)
	return shadow
}

// PublishLeaf transplants one field's state from src into this tree
// and re-marks its dependents here.
//
// This is the cross-context handoff: a producer tree publishes a
// freshly computed leaf value into a consumer tree. CopyFrom itself
// performs no propagation, so the consumer-side dependents are marked
// explicitly afterwards; publishing a dirty field therefore still
// leaves the consumer consistent, just with more to recompute.
func (t *Tree) PublishLeaf(src *Tree, key ir.FieldKey) error {
	nodeName, fieldName, err := key.Split()
	if err != nil {
		return err
	}
	dst := t.nodes[nodeName]
	from := src.nodes[nodeName]
	if dst == nil || from == nil {
		return fmt.Errorf("layout: node %q missing from one side of publish", nodeName)
	}

	var dstRef field.Ref
	switch fieldName {
	case "width":
		dst.Width.CopyFrom(from.Width)
		dstRef = dst.Width.Ref()
	case "x":
		dst.X.CopyFrom(from.X)
		dstRef = dst.X.Ref()
	case "y":
		dst.Y.CopyFrom(from.Y)
		dstRef = dst.Y.Ref()
	case "height":
		dst.Height.CopyFrom(from.Height)
		dstRef = dst.Height.Ref()
	case "style":
		dst.Style.CopyFrom(from.Style)
		dstRef = dst.Style.Ref()
	case "offset":
		dst.Offset.CopyFrom(from.Offset)
		dstRef = dst.Offset.Ref()
	default:
		return fmt.Errorf("layout: field %q cannot be published", fieldName)
	}

	t.reg.MarkDependents(dstRef)
	return nil
}

package layout

// RecomputeAll settles every dirty derived field in three ordered
// walks: widths top-down, heights bottom-up, then positions top-down.
// Clean fields are skipped; the skip is a performance shortcut and
// never a correctness requirement, because a clean field's cached
// value is trusted by construction.
//
// The token labels the pass in the trace. Returns the number of field
// recomputations performed.
func (t *Tree) RecomputeAll(token string) int {
	t.reg.BeginPass(token)

	count := 0
	t.preOrder(t.root, func(n *Node) {
		if n.Width.Dirty() {
			t.computeWidth(n)
			count++
		}
	})
	t.postOrder(t.root, func(n *Node) {
		if n.Height.Dirty() {
			t.computeHeight(n)
			count++
		}
	})
	t.preOrder(t.root, func(n *Node) {
		if n.X.Dirty() {
			t.computeX(n)
			count++
		}
		if n.Y.Dirty() {
			t.computeY(n)
			count++
		}
	})
	return count
}

func (t *Tree) preOrder(n *Node, visit func(*Node)) {
	visit(n)
	for _, kid := range n.Kids() {
		t.preOrder(kid, visit)
	}
}

func (t *Tree) postOrder(n *Node, visit func(*Node)) {
	for _, kid := range n.Kids() {
		t.postOrder(kid, visit)
	}
	visit(n)
}

// computeWidth scales the styled width by the viewport zoom and clamps
// it to the parent's width.
func (t *Tree) computeWidth(n *Node) {
	ref := n.Width.Ref()
	st := n.Style.Read(ref)
	z := t.zoom.Read(ref)

	w := st.Width * z / 100
	if n.parent != nil {
		if pw := n.parent.Width.Read(ref); w > pw {
			w = pw
		}
	}
	n.Width.Set(w)
}

// computeHeight sums child heights for containers; leaves use their
// styled height.
func (t *Tree) computeHeight(n *Node) {
	ref := n.Height.Ref()
	st := n.Style.Read(ref)
	kids := n.Children.Read(ref)

	if len(kids) == 0 {
		n.Height.Set(st.Height)
		return
	}
	total := 0
	for _, kid := range kids {
		total += kid.Height.Read(ref)
	}
	n.Height.Set(total)
}

func (t *Tree) computeX(n *Node) {
	ref := n.X.Ref()
	x := n.Offset.Read(ref).X
	if n.parent != nil {
		x += n.parent.X.Read(ref)
	}
	n.X.Set(x)
}

// computeY stacks the node below its preceding siblings inside the
// parent. Sibling order comes from the parent's children input, which
// is always clean; only the sibling heights are value dependencies.
func (t *Tree) computeY(n *Node) {
	ref := n.Y.Ref()
	y := n.Offset.Read(ref).Y
	if n.parent != nil {
		y += n.parent.Y.Read(ref)
		for _, sib := range n.parent.Kids() {
			if sib == n {
				break
			}
			y += sib.Height.Read(ref)
		}
	}
	n.Y.Set(y)
}

// Package layout is the demonstration host for the field engine: a
// small box-layout tree whose geometry is held in dependency-tracked
// fields.
//
// Geometry model, all integer device pixels:
//
//   - width flows top-down: a node's width is its styled width scaled
//     by the viewport zoom, clamped to its parent's width
//   - height flows bottom-up: a leaf's height is its styled height, a
//     container's height is the sum of its children's heights
//   - x and y flow top-down: a node sits at its parent's origin plus
//     its own offset, and y additionally stacks below preceding
//     siblings
//
// Mutations (style, offset, zoom, structure) go through the Tree and
// Node entry points, which write the input fields and let invalidation
// spread from there. RecomputeAll then settles the tree in three
// ordered walks, skipping clean fields.
package layout

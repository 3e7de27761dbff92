package layout

// Style is the externally supplied sizing input of a node. Integer
// device pixels only.
type Style struct {
	Width  int
	Height int
}

// Point is a node's offset from its computed base position.
type Point struct {
	X int
	Y int
}

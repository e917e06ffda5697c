// Package geom holds the small value types and conversions shared by the
// annotation model and the export compiler: screen/document coordinate
// flips and CSS color notation parsing into the additive color space used
// by the drawing primitives.
package geom

// Point is a position in screen space (origin top-left, y down) unless a
// consumer documents otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in screen space, anchored at its top-left
// corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DocumentY converts a screen-space y (origin top-left, y increasing
// downward) into document-space y (origin bottom-left, y increasing
// upward) for a page of the given height.
func DocumentY(screenY, pageHeight float64) float64 {
	return pageHeight - screenY
}

// BoxDocumentY converts the top edge of a box of the given height into
// the document-space y of its bottom edge, which is what the rectangle
// drawing primitive anchors on.
func BoxDocumentY(screenY, boxHeight, pageHeight float64) float64 {
	return pageHeight - screenY - boxHeight
}

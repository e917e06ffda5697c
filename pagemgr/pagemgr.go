package pagemgr

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Direction selects which way a page rotates.
type Direction string

const (
	RotateLeft  Direction = "left"
	RotateRight Direction = "right"
)

// PaperSize names a blank-page paper format.
type PaperSize string

const (
	PaperA4     PaperSize = "a4"
	PaperA3     PaperSize = "a3"
	PaperA5     PaperSize = "a5"
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

// Orientation selects portrait or landscape for a blank page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// paperDims holds portrait dimensions in points.
var paperDims = map[PaperSize][2]float64{
	PaperA4:     {595.28, 841.89},
	PaperA3:     {841.89, 1190.55},
	PaperA5:     {419.53, 595.28},
	PaperLetter: {612, 792},
	PaperLegal:  {612, 1008},
}

// Dimensions resolves a paper size and orientation to width and height
// in points. Unknown sizes fall back to A4.
func Dimensions(size PaperSize, orientation Orientation) (width, height float64) {
	d, ok := paperDims[size]
	if !ok {
		d = paperDims[PaperA4]
	}
	if orientation == Landscape {
		return d[1], d[0]
	}
	return d[0], d[1]
}

// Transform is the per-page rotation/deletion state. Rotation and
// deletion are independent: a deleted page keeps its rotation and is
// fully restorable.
type Transform struct {
	Rotation      int // multiple of 90, normalized to [0,360)
	Deleted       bool
	OriginalIndex int // zero-based index into the source document
}

// BlankPage describes a synthetic page appended at export time. It does
// not participate in the page order or transformation map.
type BlankPage struct {
	ID          string
	Position    int // index into the final page sequence
	Size        PaperSize
	Orientation Orientation
	Width       float64
	Height      float64
}

var blankSeq atomic.Int64

func newBlankID() string {
	return fmt.Sprintf("blank-%d-%d", time.Now().UnixMilli(), blankSeq.Add(1))
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

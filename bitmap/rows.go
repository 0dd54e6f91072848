package bitmap

import (
	"fmt"
	"iter"
	"math/bits"
)

// RowRecord is one entry of the row stream: a BlankRun or a PixelRow
type RowRecord interface {
	// Span returns the first row covered and the number of rows
	Span() (start, count int)

	isRowRecord()
}

// BlankRun covers Count consecutive all-zero rows starting at Start
type BlankRun struct {
	Start int
	Count int
}

// PixelRow carries a single row that has at least one ink pixel
type PixelRow struct {
	Row     int
	SetBits int
	Repeat  int
	Data    Row
}

func (r BlankRun) Span() (int, int) { return r.Start, r.Count }
func (r PixelRow) Span() (int, int) { return r.Row, 1 }

func (BlankRun) isRowRecord() {}
func (PixelRow) isRowRecord() {}

func (r BlankRun) String() string {
	return fmt.Sprintf("BlankRun{%d,%d}", r.Start, r.Count)
}

func (r PixelRow) String() string {
	return fmt.Sprintf("PixelRow{row=%d,bits=%d,repeat=%d}", r.Row, r.SetBits, r.Repeat)
}

// IsBlank reports whether the row has no ink pixels
func (r *Row) IsBlank() bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}

// SetBits counts the ink pixels in the row
func (r *Row) SetBits() int {
	n := 0
	for _, v := range r {
		n += bits.OnesCount8(v)
	}
	return n
}

// Compress walks the bitmap top to bottom and yields records in row order.
// Consecutive blank rows collapse into one BlankRun, which is emitted as soon
// as a non-blank row follows or the bitmap ends. Every non-blank row becomes a
// PixelRow with a repeat count of 1.
func Compress(b *Bitmap) iter.Seq[RowRecord] {
	return func(yield func(RowRecord) bool) {
		blankStart, blankCount := 0, 0

		for y := 0; y < Height; y++ {
			row := &b.rows[y]
			if row.IsBlank() {
				if blankCount == 0 {
					blankStart = y
				}
				blankCount++
				continue
			}

			if blankCount > 0 {
				if !yield(BlankRun{Start: blankStart, Count: blankCount}) {
					return
				}
				blankCount = 0
			}

			if !yield(PixelRow{Row: y, SetBits: row.SetBits(), Repeat: 1, Data: *row}) {
				return
			}
		}

		if blankCount > 0 {
			yield(BlankRun{Start: blankStart, Count: blankCount})
		}
	}
}

package grid

import "fmt"

// Coord is a cell position in (column, row) order.
type Coord struct {
	Col int
	Row int
}

// C is shorthand for Coord{Col: col, Row: row}.
func C(col, row int) Coord {
	return Coord{Col: col, Row: row}
}

// Add returns c translated by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Col: c.Col + d.Col, Row: c.Row + d.Row}
}

// Less orders coordinates column-major. Used for deterministic tie-breaking.
func (c Coord) Less(o Coord) bool {
	if c.Col != o.Col {
		return c.Col < o.Col
	}
	return c.Row < o.Row
}

// String formats the coordinate as "(col,row)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

// IsDiagonal reports whether a and b are diagonal neighbours.
func IsDiagonal(a, b Coord) bool {
	return abs(a.Col-b.Col) == 1 && abs(a.Row-b.Row) == 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Block returns every coordinate in the inclusive rectangle spanned by
// topLeft and bottomRight, column by column.
func Block(topLeft, bottomRight Coord) []Coord {
	var out []Coord
	for col := topLeft.Col; col <= bottomRight.Col; col++ {
		for row := topLeft.Row; row <= bottomRight.Row; row++ {
			out = append(out, Coord{Col: col, Row: row})
		}
	}
	return out
}

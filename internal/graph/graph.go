package graph

import "fmt"

// Graph is the flat form of a value graph: an ordered content array and the
// index of the root record.
//
// While encoding, indices are handed out with Reserve and filled in with
// Fill, so a record can refer to itself before its content exists. Once
// returned to a caller a Graph is treated as read-only.
type Graph struct {
	Root int
	Data []Record
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// Len returns the number of records.
func (g *Graph) Len() int {
	return len(g.Data)
}

// Reserve appends an empty slot and returns its index.
func (g *Graph) Reserve() int {
	g.Data = append(g.Data, nil)
	return len(g.Data) - 1
}

// Fill stores r at a previously reserved index.
func (g *Graph) Fill(idx int, r Record) {
	if idx < 0 || idx >= len(g.Data) {
		panic(fmt.Sprintf("graph: fill of unreserved index %d", idx))
	}
	g.Data[idx] = r
}

// Append reserves and fills a slot in one step.
func (g *Graph) Append(r Record) int {
	idx := g.Reserve()
	g.Data[idx] = r
	return idx
}

// At returns the record at idx, or an INVALID_INDEX error.
func (g *Graph) At(idx int) (Record, error) {
	if idx < 0 || idx >= len(g.Data) {
		return nil, NewInvalidIndexError(idx, len(g.Data))
	}
	return g.Data[idx], nil
}

// Stats counts records per kind.
func (g *Graph) Stats() map[Kind]int {
	stats := make(map[Kind]int, len(Kinds))
	for _, r := range g.Data {
		if r != nil {
			stats[r.Kind()]++
		}
	}
	return stats
}

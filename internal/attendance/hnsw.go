package attendance

import (
	"math"

	"github.com/coder/hnsw"
)

const (
	// hnswMaxNeighbors is the M parameter of the graph.
	hnswMaxNeighbors = 16
	// hnswCandidates is how many nearest samples are re-scored exactly.
	hnswCandidates = 32
	// hnswMinEfSearch is the smallest search pool; larger rosters search all samples.
	hnswMinEfSearch = 64
)

// hnswIndex maps graph nodes (one per descriptor sample) back to roster students.
// Node keys follow enrollment order.
type hnswIndex struct {
	graph     *hnsw.Graph[int]
	owners    []*EnrolledStudent
	dimension int
}

func newHNSWIndex(roster *Roster) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1 / math.Log(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	idx := &hnswIndex{graph: g}
	students := roster.Students()
	for i := range students {
		s := &students[i]
		for _, sample := range s.Descriptors {
			if idx.dimension == 0 {
				idx.dimension = len(sample)
			}
			// The graph requires a single dimension; mismatched samples can never match anyway.
			if len(sample) != idx.dimension {
				continue
			}
			g.Add(hnsw.MakeNode(len(idx.owners), []float32(sample)))
			idx.owners = append(idx.owners, s)
		}
	}
	g.EfSearch = max(hnswMinEfSearch, len(idx.owners))
	return idx
}

// nearest re-scores the graph's candidates with the exact distance. The
// search is approximate: the result may miss the true nearest sample.
func (idx *hnswIndex) nearest(d Descriptor, tie TieBreak) candidate {
	best := candidate{distance: math.Inf(1)}
	if len(idx.owners) == 0 || len(d) != idx.dimension {
		return best
	}

	k := min(hnswCandidates, len(idx.owners))
	for _, node := range idx.graph.Search([]float32(d), k) {
		c := candidate{student: idx.owners[node.Key], order: node.Key, distance: EuclideanDistance(d, Descriptor(node.Value))}
		if c.better(best, tie) {
			best = c
		}
	}
	return best
}

package vectorstore

import (
	"container/heap"
	"math"
	"sort"
)

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is the precomputed norm of
// a. Vectors of different length or zero norm score 0.
func cosine(a, b []float32, aNorm float32) float32 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if bNormSq == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * math.Sqrt(bNormSq)))
}

// idScore holds only the id and score during a scan.
type idScore struct {
	ID    string
	Score float32
}

// idScoreHeap is a min-heap of idScore ordered by Score.
type idScoreHeap []idScore

func (h idScoreHeap) Len() int           { return len(h) }
func (h idScoreHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h idScoreHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idScoreHeap) Push(x any)        { *h = append(*h, x.(idScore)) }
func (h *idScoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK keeps the k best scores seen so far.
type topK struct {
	k int
	h idScoreHeap
}

func newTopK(k int) *topK {
	return &topK{k: k, h: make(idScoreHeap, 0, k)}
}

func (t *topK) offer(id string, score float32) {
	if t.h.Len() < t.k {
		heap.Push(&t.h, idScore{ID: id, Score: score})
		return
	}
	if score > t.h[0].Score {
		t.h[0] = idScore{ID: id, Score: score}
		heap.Fix(&t.h, 0)
	}
}

// result returns the kept entries by descending score.
func (t *topK) result() []idScore {
	out := make([]idScore, len(t.h))
	copy(out, t.h)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

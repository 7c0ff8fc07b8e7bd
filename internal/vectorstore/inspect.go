package vectorstore

import (
	"context"
	"sort"
	"time"
)

// ChunkView is the display form of a stored chunk, without its vector.
type ChunkView struct {
	ID           string    `json:"id"`
	DocumentName string    `json:"document_name"`
	InsertDate   time.Time `json:"insert_date"`
	Kind         Kind      `json:"kind"`
	Text         string    `json:"text"`
}

// Inspect returns the first topN chunks in insertion order. topN <= 0
// returns every chunk.
func Inspect(ctx context.Context, s Store, topN int) ([]ChunkView, error) {
	var out []ChunkView
	err := s.Iterate(ctx, func(c Chunk) bool {
		out = append(out, ChunkView{
			ID:           c.ID,
			DocumentName: c.Metadata.DocumentName,
			InsertDate:   c.Metadata.InsertDate,
			Kind:         c.Kind,
			Text:         c.Text,
		})
		return topN <= 0 || len(out) < topN
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Info summarizes the content of a store.
type Info struct {
	Chunks        int            `json:"chunks"`
	Documents     int            `json:"documents"`
	MinInsertDate time.Time      `json:"min_insert_date,omitzero"`
	MaxInsertDate time.Time      `json:"max_insert_date,omitzero"`
	PerDocument   map[string]int `json:"per_document"`
}

// DocumentCount is one entry of Info.DocumentList.
type DocumentCount struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}

// Summarize computes chunk and document counts and the insert date range.
func Summarize(ctx context.Context, s Store) (Info, error) {
	info := Info{PerDocument: make(map[string]int)}
	err := s.Iterate(ctx, func(c Chunk) bool {
		info.Chunks++
		info.PerDocument[c.Metadata.DocumentName]++
		d := c.Metadata.InsertDate
		if info.MinInsertDate.IsZero() || d.Before(info.MinInsertDate) {
			info.MinInsertDate = d
		}
		if d.After(info.MaxInsertDate) {
			info.MaxInsertDate = d
		}
		return true
	})
	if err != nil {
		return Info{}, err
	}
	info.Documents = len(info.PerDocument)
	return info, nil
}

// DocumentList returns the per-document counts sorted by name.
func (i Info) DocumentList() []DocumentCount {
	out := make([]DocumentCount, 0, len(i.PerDocument))
	for name, n := range i.PerDocument {
		out = append(out, DocumentCount{Name: name, Chunks: n})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

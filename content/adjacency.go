package content

import "fmt"

// ResolveAdjacency finds the posts on either side of uid in ordered, which
// must already be sorted by publication date. Posts sharing a timestamp keep
// the order they have in the slice. A uid missing from ordered is ErrNotFound.
func ResolveAdjacency(uid string, ordered []PostSummary) (Adjacency, error) {
	for i := range ordered {
		if ordered[i].UID != uid {
			continue
		}
		var adj Adjacency
		if i > 0 {
			prev := ordered[i-1]
			adj.Previous = &prev
		}
		if i+1 < len(ordered) {
			next := ordered[i+1]
			adj.Next = &next
		}
		return adj, nil
	}
	return Adjacency{}, fmt.Errorf("content: adjacency for %q: %w", uid, ErrNotFound)
}

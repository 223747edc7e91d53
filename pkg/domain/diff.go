package domain

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Upserted dots are new or changed; clients replace by id.
	UpsertedDots []Dot    `json:"upserted_dots,omitempty"`
	RemovedDots  []string `json:"removed_dots,omitempty"`

	UpsertedConnections []Connection `json:"upserted_connections,omitempty"`
	RemovedConnections  []string     `json:"removed_connections,omitempty"`

	// Order carries the full dot id order when it changed without any
	// insertion or removal explaining it (for example after undo).
	Order []string `json:"order,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(sessionID string, oldSnap *Snapshot, newSnap Snapshot) *SnapshotDiff {
	diff := &SnapshotDiff{SessionID: sessionID}

	if oldSnap == nil {
		diff.UpsertedDots = append(diff.UpsertedDots, newSnap.Dots...)
		diff.UpsertedConnections = append(diff.UpsertedConnections, newSnap.Connections...)
		if diff.IsEmpty() {
			return nil
		}
		return diff
	}

	oldDots := make(map[string]Dot, len(oldSnap.Dots))
	for _, d := range oldSnap.Dots {
		oldDots[d.ID] = d
	}
	newDots := make(map[string]struct{}, len(newSnap.Dots))
	for _, d := range newSnap.Dots {
		newDots[d.ID] = struct{}{}
		if prev, ok := oldDots[d.ID]; !ok || prev != d {
			diff.UpsertedDots = append(diff.UpsertedDots, d)
		}
	}
	for _, d := range oldSnap.Dots {
		if _, ok := newDots[d.ID]; !ok {
			diff.RemovedDots = append(diff.RemovedDots, d.ID)
		}
	}

	oldConns := make(map[string]Connection, len(oldSnap.Connections))
	for _, c := range oldSnap.Connections {
		oldConns[c.ID] = c
	}
	newConns := make(map[string]struct{}, len(newSnap.Connections))
	for _, c := range newSnap.Connections {
		newConns[c.ID] = struct{}{}
		if prev, ok := oldConns[c.ID]; !ok || prev != c {
			diff.UpsertedConnections = append(diff.UpsertedConnections, c)
		}
	}
	for _, c := range oldSnap.Connections {
		if _, ok := newConns[c.ID]; !ok {
			diff.RemovedConnections = append(diff.RemovedConnections, c.ID)
		}
	}

	if reordered(oldSnap.Dots, newSnap.Dots, newDots) {
		diff.Order = make([]string, len(newSnap.Dots))
		for i, d := range newSnap.Dots {
			diff.Order[i] = d.ID
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// reordered reports whether the surviving dots changed relative order.
// Hit-testing depends on list order, so clients need to know.
func reordered(oldDots, newDots []Dot, present map[string]struct{}) bool {
	var kept []string
	for _, d := range oldDots {
		if _, ok := present[d.ID]; ok {
			kept = append(kept, d.ID)
		}
	}
	i := 0
	for _, d := range newDots {
		if i < len(kept) && d.ID == kept[i] {
			i++
		}
	}
	return i != len(kept)
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return len(d.UpsertedDots) == 0 &&
		len(d.RemovedDots) == 0 &&
		len(d.UpsertedConnections) == 0 &&
		len(d.RemovedConnections) == 0 &&
		len(d.Order) == 0
}

// Package scan owns the scan queue: the ordered collection of submitted files
// and their lifecycle state. The queue is the single point of truth for what
// the dashboard renders. All mutations come from the one active orchestrator
// flow plus Enqueue, so a single RWMutex gives the required single-writer,
// many-reader discipline.
package scan

import (
	"sync"

	"github.com/google/uuid"
)

// Queue is the ordered collection of ScanItems, most recent submission first.
type Queue struct {
	mu    sync.RWMutex
	items []*ScanItem
}

// NewQueue creates an empty scan queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue creates one idle ScanItem per file and inserts the batch at the
// front of the queue. Returns the generated item IDs in batch order. An empty
// batch is a no-op.
func (q *Queue) Enqueue(files []FileRef) []string {
	if len(files) == 0 {
		return nil
	}

	batch := make([]*ScanItem, len(files))
	ids := make([]string, len(files))
	for i, f := range files {
		id := uuid.NewString()
		batch[i] = &ScanItem{
			ID:       id,
			File:     f,
			Status:   StatusIdle,
			Progress: 0,
		}
		ids[i] = id
	}

	q.mu.Lock()
	q.items = append(batch, q.items...)
	q.mu.Unlock()

	return ids
}

// UpdateItem replaces the named fields of the item matched by id. An unknown
// id is a silent no-op; insertion order of untouched items is preserved.
func (q *Queue) UpdateItem(id string, patch ItemPatch) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID != id {
			continue
		}
		if patch.Status != nil {
			item.Status = *patch.Status
		}
		if patch.Progress != nil {
			item.Progress = *patch.Progress
		}
		if patch.ETA != nil {
			eta := *patch.ETA
			item.ETA = &eta
		}
		if patch.Result != nil {
			item.Result = patch.Result
		}
		return
	}
}

// Find returns a snapshot of the item with the given id.
func (q *Queue) Find(id string) (ScanItem, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, item := range q.items {
		if item.ID == id {
			return copyItem(item), true
		}
	}
	return ScanItem{}, false
}

// Items returns an ordered snapshot of the whole queue for rendering.
func (q *Queue) Items() []ScanItem {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]ScanItem, len(q.items))
	for i, item := range q.items {
		out[i] = copyItem(item)
	}
	return out
}

// Len returns the number of items in the queue.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.items)
}

// ActiveCount returns how many items are currently scanning or analyzing.
// The orchestrator keeps this at most 1.
func (q *Queue) ActiveCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, item := range q.items {
		if item.Status.Active() {
			n++
		}
	}
	return n
}

func copyItem(item *ScanItem) ScanItem {
	out := *item
	if item.ETA != nil {
		eta := *item.ETA
		out.ETA = &eta
	}
	return out
}

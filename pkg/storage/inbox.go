package storage

import (
	"context"
	"fmt"
	"sync"
)

// Inbox remembers which images under a root have been processed, by content hash, so a
// re-saved or renamed copy of an already processed image is not picked up again.
type Inbox struct {
	root string

	mu   sync.Mutex
	seen map[string]bool
}

func NewInbox(root string) *Inbox {
	return &Inbox{root: root, seen: map[string]bool{}}
}

// Sweep returns images whose content has not been marked yet, with Hash filled. Nothing is
// recorded: an image keeps coming back until Mark is called with its hash. Files that
// cannot be hashed are left for the next sweep, and two files with the same content in
// one sweep are returned once.
func (in *Inbox) Sweep(ctx context.Context) ([]*FileInfo, error) {
	files, err := Discover(ctx, in.root)
	if err != nil {
		return nil, fmt.Errorf("inbox sweep: %w", err)
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	batch := map[string]bool{}
	var fresh []*FileInfo
	for _, f := range files {
		hash, err := HashFile(f.Path)
		if err != nil {
			continue
		}
		if in.seen[hash] || batch[hash] {
			continue
		}
		batch[hash] = true
		f.Hash = hash
		fresh = append(fresh, f)
	}
	return fresh, nil
}

// Mark records hashes as processed so later sweeps skip them.
func (in *Inbox) Mark(hashes ...string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	for _, h := range hashes {
		if h != "" {
			in.seen[h] = true
		}
	}
}

// Seen returns how many distinct images have been marked.
func (in *Inbox) Seen() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.seen)
}

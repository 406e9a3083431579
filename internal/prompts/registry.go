// Package prompts holds the evaluation rubrics ("system prompts") that scored
// calls are judged against. Exactly one prompt is active at a time.
package prompts

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a prompt id does not resolve.
	ErrNotFound = errors.New("prompt not found")
	// ErrActivePrompt is returned on an attempt to delete the active prompt.
	ErrActivePrompt = errors.New("cannot delete the active prompt")
)

// SystemPrompt is an evaluation rubric. Only IsActive changes after creation.
type SystemPrompt struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// Registry owns all SystemPrompt entities and their activation state.
type Registry struct {
	mu       sync.Mutex
	prompts  map[string]*SystemPrompt
	activeID string
	nextID   int
}

func NewRegistry() *Registry {
	return &Registry{prompts: make(map[string]*SystemPrompt)}
}

// Add stores a new inactive prompt and returns its generated id. Ids are
// monotonic and never reused, even across deletes.
func (r *Registry) Add(name, body string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := fmt.Sprintf("prompt_%d", r.nextID)
	r.prompts[id] = &SystemPrompt{
		ID:        id,
		Name:      name,
		Body:      body,
		CreatedAt: time.Now(),
	}
	return id
}

// Activate marks id as the single active prompt, deactivating all others in
// the same critical section so no reader ever sees two active prompts.
func (r *Registry) Activate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.prompts[id]
	if !ok {
		return fmt.Errorf("activate %s: %w", id, ErrNotFound)
	}
	for _, p := range r.prompts {
		p.IsActive = false
	}
	target.IsActive = true
	r.activeID = id
	return nil
}

// Delete removes a prompt. Deleting the active prompt is rejected so the
// registry never silently loses its policy.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prompts[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if id == r.activeID {
		return fmt.Errorf("delete %s: %w", id, ErrActivePrompt)
	}
	delete(r.prompts, id)
	return nil
}

// ActiveBody returns the body of the active prompt. A dangling active id is
// treated as "no active prompt" rather than an error.
func (r *Registry) ActiveBody() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeID == "" {
		return "", false
	}
	p, ok := r.prompts[r.activeID]
	if !ok {
		return "", false
	}
	return p.Body, true
}

// List returns snapshots of all prompts ordered by numeric id.
func (r *Registry) List() []SystemPrompt {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SystemPrompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		return promptNum(out[i].ID) < promptNum(out[j].ID)
	})
	return out
}

// Count returns the number of stored prompts.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

func promptNum(id string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, "prompt_"))
	return n
}

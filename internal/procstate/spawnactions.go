package procstate

import (
	"fmt"
	"sync"
)

// SpawnActionsPool shadows posix_spawn_file_actions_t mutations into a
// side table keyed by the actions pointer: the opaque C type is mutated
// by adder calls before posix_spawn consumes it, so rather than try to
// embed state into it, it is tracked externally, keyed by its address as
// seen from the cgo boundary.
type SpawnActionsPool struct {
	mu      sync.Mutex
	actions map[uintptr][]string
}

// NewSpawnActionsPool returns an empty pool.
func NewSpawnActionsPool() *SpawnActionsPool {
	return &SpawnActionsPool{actions: make(map[uintptr][]string)}
}

// Init registers a fresh, empty action list for a newly
// posix_spawn_file_actions_init'd pointer.
func (p *SpawnActionsPool) Init(key uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[key] = nil
}

// Destroy drops the side-table entry for a posix_spawn_file_actions_destroy'd
// pointer.
func (p *SpawnActionsPool) Destroy(key uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.actions, key)
}

// AddOpen records a posix_spawn_file_actions_addopen call in the wire
// format: "o fd flags mode path".
func (p *SpawnActionsPool) AddOpen(key uintptr, fd, flags, mode int, path string) {
	p.append(key, fmt.Sprintf("o %d %d %d %s", fd, flags, mode, path))
}

// AddClose records a posix_spawn_file_actions_addclose call: "c fd".
func (p *SpawnActionsPool) AddClose(key uintptr, fd int) {
	p.append(key, fmt.Sprintf("c %d", fd))
}

// AddDup2 records a posix_spawn_file_actions_adddup2 call: "d oldfd newfd".
func (p *SpawnActionsPool) AddDup2(key uintptr, oldfd, newfd int) {
	p.append(key, fmt.Sprintf("d %d %d", oldfd, newfd))
}

func (p *SpawnActionsPool) append(key uintptr, action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[key] = append(p.actions[key], action)
}

// Actions returns the accumulated action list for key, in the order the
// application issued them, ready to go straight into a posix_spawn
// message's file_actions array field.
func (p *SpawnActionsPool) Actions(key uintptr) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.actions[key]...)
}

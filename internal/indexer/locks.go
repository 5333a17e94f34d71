package indexer

import "sync"

// ProjectLocks serializes mutations (process, reset, asset delete) per project.
type ProjectLocks struct {
	mu    sync.Mutex
	locks map[int64]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

// NewProjectLocks returns an empty lock set.
func NewProjectLocks() *ProjectLocks {
	return &ProjectLocks{locks: make(map[int64]*projectLock)}
}

// Lock blocks until the project is free and returns its unlock function.
func (p *ProjectLocks) Lock(projectID int64) (unlock func()) {
	p.mu.Lock()
	l, ok := p.locks[projectID]
	if !ok {
		l = &projectLock{}
		p.locks[projectID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, projectID)
		}
		p.mu.Unlock()
	}
}

func (p *ProjectLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

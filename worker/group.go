package worker

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/modbustk/go-modbus/logger"
)

// Group tracks a set of named workers so they can be stopped individually
// or all at once. It is safe for concurrent use.
type Group struct {
	workers *xsync.MapOf[string, *Worker]
	logger  logger.Logger
}

// NewGroup creates an empty worker group. A nil logger falls back to the
// package default.
func NewGroup(l logger.Logger) *Group {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Group{
		workers: xsync.NewMapOf[string, *Worker](),
		logger:  l,
	}
}

// Go creates, registers, and starts a worker with the given name.
// The name must be unique within the group.
func (g *Group) Go(name string, main Func, opts ...Option) (*Worker, error) {
	opts = append([]Option{WithLogger(g.logger)}, opts...)

	w, err := New(name, main, opts...)
	if err != nil {
		return nil, err
	}

	if _, loaded := g.workers.LoadOrStore(name, w); loaded {
		return nil, fmt.Errorf("worker: %q already exists in group", name)
	}

	if err := w.Start(); err != nil {
		g.workers.Delete(name)

		return nil, err
	}

	g.logger.Debug("worker: started", "name", name, "count", g.Len())

	return w, nil
}

// Get returns the named worker, or nil if it is not registered.
func (g *Group) Get(name string) *Worker {
	w, _ := g.workers.Load(name)

	return w
}

// Stop stops and removes the named worker. Unknown names are an error.
func (g *Group) Stop(name string) error {
	w, ok := g.workers.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("worker: %q not found in group", name)
	}

	w.Stop()
	g.logger.Debug("worker: stopped", "name", name, "count", g.Len())

	return nil
}

// StopAll stops and removes every worker in the group, joining each one.
func (g *Group) StopAll() {
	g.workers.Range(func(name string, w *Worker) bool {
		g.workers.Delete(name)
		w.Stop()

		return true
	})
}

// Len returns the number of registered workers.
func (g *Group) Len() int {
	return g.workers.Size()
}

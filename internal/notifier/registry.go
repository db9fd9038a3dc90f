package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry manages notifier instances and fans notifications out to them
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	metrics   Recorder
}

// Recorder counts deliveries by notification kind and outcome.
type Recorder interface {
	RecordNotification(kind, status string)
}

// SetRecorder attaches a delivery recorder.
func (r *Registry) SetRecorder(rec Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = rec
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Name identifies the registry when it is used as a Notifier itself.
func (r *Registry) Name() string { return "registry" }

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers sorted by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// NotifyAll sends n to every registered notifier and returns failures by name
func (r *Registry) NotifyAll(ctx context.Context, n Notification) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, nt := range r.notifiers {
		status := "ok"
		if err := nt.Notify(ctx, n); err != nil {
			errs[name] = err
			status = "error"
		}
		if r.metrics != nil {
			r.metrics.RecordNotification(string(n.Kind), status)
		}
	}
	return errs
}

// Notify implements Notifier; every destination is attempted.
func (r *Registry) Notify(ctx context.Context, n Notification) error {
	failures := r.NotifyAll(ctx, n)
	if len(failures) == 0 {
		return nil
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, failures[name]))
	}
	return errors.Join(errs...)
}

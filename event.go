package vfs

import "sync"

// An EventKind classifies what happened to a path.
type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
	EventDeleted
	EventRenamed
	EventAttributesChanged
	EventMounted
	EventUnmounted
	// EventProgress reports incremental byte/object progress of a running Operation. Path is the operation's
	// source path; OldPath is unused.
	EventProgress
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "Created"
	case EventModified:
		return "Modified"
	case EventDeleted:
		return "Deleted"
	case EventRenamed:
		return "Renamed"
	case EventAttributesChanged:
		return "AttributesChanged"
	case EventMounted:
		return "Mounted"
	case EventUnmounted:
		return "Unmounted"
	case EventProgress:
		return "Progress"
	default:
		return "Unknown"
	}
}

// An Event describes a single change notification. OldPath is only populated for EventRenamed.
type Event struct {
	Kind    EventKind
	Path    Path
	OldPath Path
	FS      FileSystem
	// BytesDone/BytesTotal are populated for EventProgress; BytesTotal is -1 if unknown.
	BytesDone  int64
	BytesTotal int64
}

// Observer receives events from Observe registrations. Implementations must not block on further filesystem
// calls from within OnEvent when registered under a CallerThreadDispatcher, since the call stack that raised
// the event is blocked on OnEvent returning.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// A Dispatcher decides which goroutine actually runs Observer.OnEvent.
type Dispatcher interface {
	Dispatch(observer Observer, event Event)
}

// CallerThreadDispatcher runs OnEvent synchronously on the calling goroutine, the cheapest and most ordered
// option, appropriate when the observer is fast and the caller can tolerate being blocked by it.
type CallerThreadDispatcher struct{}

// Dispatch implements Dispatcher.
func (CallerThreadDispatcher) Dispatch(observer Observer, event Event) {
	observer.OnEvent(event)
}

// TaskPoolDispatcher runs OnEvent on a bounded pool of background goroutines, decoupling slow or many
// observers from the goroutine that detected the change. Every job is queued on one channel in detection order.
// With a single worker, each observer sees its events in that order. With several workers, jobs for the same
// observer can run concurrently on different workers, so one observer's events may arrive out of order.
type TaskPoolDispatcher struct {
	jobs chan dispatchJob
	wg   sync.WaitGroup
}

type dispatchJob struct {
	observer Observer
	event    Event
}

// NewTaskPoolDispatcher starts a dispatcher backed by workers goroutines. Close must be called to release them.
func NewTaskPoolDispatcher(workers int) *TaskPoolDispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &TaskPoolDispatcher{jobs: make(chan dispatchJob, workers*4)}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer d.wg.Done()
			for job := range d.jobs {
				job.observer.OnEvent(job.event)
			}
		}()
	}
	return d
}

// Dispatch implements Dispatcher.
func (d *TaskPoolDispatcher) Dispatch(observer Observer, event Event) {
	d.jobs <- dispatchJob{observer: observer, event: event}
}

// Close stops accepting new jobs and waits for queued ones to finish.
func (d *TaskPoolDispatcher) Close() {
	close(d.jobs)
	d.wg.Wait()
}

type observerRegistration struct {
	handle     ObserverHandle
	path       Path
	filter     Filter
	observer   Observer
	dispatcher Dispatcher
}

// EventHub is the per-filesystem registry of Observe registrations. Backends, Decorations and Composers each
// own one and call Publish whenever they raise a change; Publish fans the event out to every registration
// whose path scope and filter match.
type EventHub struct {
	mu            sync.RWMutex
	registrations map[ObserverHandle]*observerRegistration
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{registrations: make(map[ObserverHandle]*observerRegistration)}
}

// Add registers observer for events at or below path, returning a handle to later Remove it. A nil dispatcher
// defaults to CallerThreadDispatcher{}.
func (h *EventHub) Add(path Path, opt Option, observer Observer, dispatcher Dispatcher) ObserverHandle {
	if dispatcher == nil {
		dispatcher = CallerThreadDispatcher{}
	}
	handle := NewObserverHandle()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registrations[handle] = &observerRegistration{
		handle:     handle,
		path:       path,
		filter:     opt.Observe().Filter,
		observer:   observer,
		dispatcher: dispatcher,
	}
	return handle
}

// Remove unregisters handle. Removing an unknown handle is a no-op.
func (h *EventHub) Remove(handle ObserverHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.registrations, handle)
}

// Len reports the number of live registrations.
func (h *EventHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.registrations)
}

// Publish delivers event to every registration whose scope covers it, aggregating any dispatcher-originated
// panics is intentionally not attempted: a misbehaving Observer is a programming error, not a filesystem
// error, and is left to crash the process per normal Go convention.
func (h *EventHub) Publish(event Event) {
	h.mu.RLock()
	targets := make([]*observerRegistration, 0, len(h.registrations))
	for _, reg := range h.registrations {
		if !event.Path.StartsWith(reg.path) && event.Path != reg.path {
			continue
		}
		if !reg.filter.Match(event.Path) {
			continue
		}
		targets = append(targets, reg)
	}
	h.mu.RUnlock()
	for _, reg := range targets {
		reg.dispatcher.Dispatch(reg.observer, event)
	}
}

// Rewrite returns a copy of event with Path (and OldPath, if set) remapped through convert. Used when a
// Decoration or VirtualFileSystem forwards an event raised by a child across a subpath boundary.
func (event Event) Rewrite(convert func(Path) Path) Event {
	out := event
	out.Path = convert(event.Path)
	if event.OldPath != "" {
		out.OldPath = convert(event.OldPath)
	}
	return out
}

package gloop

// descState is a descriptor-watch source's private state: a
// single-fd wrapper over the generic descriptor-watch mechanism exposed by
// Source itself, with a typed callback in place of the untyped Func triple.
type descState struct {
	watch WatchHandle
	onIO  func(events IOEvent) DispatchResult
}

func descCheck(s *Source) bool {
	ds := s.impl.(*descState)
	return s.QueryDescriptorWatch(ds.watch)&(IOReadable|IOWritable|IOPriority|IOError|IOHangup|IOInvalid) != 0
}

func descDispatch(s *Source, fn Func, data interface{}) DispatchResult {
	ds := s.impl.(*descState)
	events := s.QueryDescriptorWatch(ds.watch)
	if ds.onIO != nil {
		return ds.onIO(events)
	}
	return Keep
}

// NewDescriptorSource watches fd for the requested events and invokes onIO
// on each dispatch with the events actually observed.
func NewDescriptorSource(fd int, events IOEvent, onIO func(events IOEvent) DispatchResult) *Source {
	s := NewSource(&SourceFuncs{Check: descCheck, Dispatch: descDispatch})
	ds := &descState{onIO: onIO}
	s.impl = ds
	ds.watch = s.AddDescriptorWatch(fd, events)
	return s
}

// ModifyEvents changes the event mask this source watches for on its
// underlying descriptor.
func (s *Source) ModifyEvents(events IOEvent) {
	ds, ok := s.impl.(*descState)
	if !ok {
		return
	}
	s.ModifyDescriptorWatch(ds.watch, events)
}

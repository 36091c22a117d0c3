package gloop

// pollRecord is a (descriptor watch, priority) node in the context's
// descriptor-identifier-ordered list.
type pollRecord struct {
	watch    *descriptorWatch
	priority int32
	prev     *pollRecord
	next     *pollRecord
}

// pollRecordSet is the context-owned, fd-sorted list of poll records. All
// methods assume the caller holds the owning context's mutex.
type pollRecordSet struct {
	head, tail *pollRecord
	changed    bool
	flat       []PollFD
}

// add inserts a record for w at priority p into the sorted (by fd ascending)
// list, resets the watch's received mask, and marks the set changed.
func (ps *pollRecordSet) add(w *descriptorWatch, p int32) *pollRecord {
	w.received.Store(0)
	rec := &pollRecord{watch: w, priority: p}
	w.priority = p

	if ps.head == nil || w.fd <= ps.head.watch.fd {
		rec.next = ps.head
		if ps.head != nil {
			ps.head.prev = rec
		}
		ps.head = rec
		if ps.tail == nil {
			ps.tail = rec
		}
	} else {
		cur := ps.head
		for cur.next != nil && cur.next.watch.fd < w.fd {
			cur = cur.next
		}
		rec.next = cur.next
		rec.prev = cur
		if cur.next != nil {
			cur.next.prev = rec
		} else {
			ps.tail = rec
		}
		cur.next = rec
	}
	ps.changed = true
	return rec
}

// remove detaches rec from the list by identity.
func (ps *pollRecordSet) remove(rec *pollRecord) {
	if rec.prev != nil {
		rec.prev.next = rec.next
	} else {
		ps.head = rec.next
	}
	if rec.next != nil {
		rec.next.prev = rec.prev
	} else {
		ps.tail = rec.prev
	}
	rec.prev, rec.next = nil, nil
	ps.changed = true
}

// flatten walks the list in fd order, skipping records whose priority is
// numerically greater than maxPriority, and coalesces consecutive records
// sharing a descriptor into a single output entry with OR-combined masks.
// Clears the changed flag.
func (ps *pollRecordSet) flatten(maxPriority int32) []PollFD {
	out := ps.flat[:0]
	for rec := ps.head; rec != nil; rec = rec.next {
		if rec.priority > maxPriority {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Fd == rec.watch.fd {
			out[n-1].Requested |= rec.watch.requested
			continue
		}
		out = append(out, PollFD{Fd: rec.watch.fd, Requested: rec.watch.requested})
	}
	ps.flat = out
	ps.changed = false
	return out
}

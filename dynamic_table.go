package hpack

// dynamicTable is the per-peer, size-bounded FIFO of recently-seen
// header fields described in RFC 7541 §2.3.2. It is backed by a ring
// buffer sized so that capacity/32 (rounded up) is always at least as
// large as the maximum number of entries that could fit — the
// smallest possible entry occupies 32 bytes of "size in table" — so
// that growth under a fixed capacity never needs to reallocate.
//
// This is new engineering relative to the rest of the pack: every
// HPACK source available for reference (quic-go-qpack has no dynamic
// table of its own to model; erda-project-erda-agent/pkg/hpack/hpack.go
// and golang-net__hpack.go) backs its dynamic table with a plain
// growing/shrinking slice rather than a ring buffer; see DESIGN.md.
type dynamicTable struct {
	ring     []HeaderField
	head     int // index of the oldest live entry
	count    int // number of live entries
	size     uint32
	capacity uint32
}

// newDynamicTable constructs an empty table at the given capacity.
func newDynamicTable(capacity uint32) *dynamicTable {
	dt := &dynamicTable{}
	dt.reallocate(capacity)
	dt.capacity = capacity
	return dt
}

// maxEntriesFor returns the ring size needed to hold up to c bytes of
// capacity, given the 32-byte-per-entry floor.
func maxEntriesFor(c uint32) int {
	return int((c + 31) / 32)
}

// reallocate resizes the backing ring to fit capacity c, copying any
// live entries from oldest to newest into slots 0..count-1 and
// resetting head to 0. Callers must have already evicted down to a
// size that fits within c.
func (dt *dynamicTable) reallocate(c uint32) {
	n := maxEntriesFor(c)
	if n == len(dt.ring) {
		return
	}
	next := make([]HeaderField, n)
	for i := 0; i < dt.count && i < n; i++ {
		next[i] = dt.ring[(dt.head+i)%max(len(dt.ring), 1)]
	}
	dt.ring = next
	dt.head = 0
}

// length returns the number of entries currently stored.
func (dt *dynamicTable) length() int {
	return dt.count
}

// getEntry returns the entry at 1-based logical index i, where i=1 is
// the newest entry and i=length() is the oldest.
func (dt *dynamicTable) getEntry(i int) (HeaderField, error) {
	if i < 1 || i > dt.count {
		return HeaderField{}, IndexOutOfRangeError(i)
	}
	idx := (dt.head + dt.count - i) % len(dt.ring)
	return dt.ring[idx], nil
}

// add inserts entry as the newest, evicting from the oldest end as
// needed to stay within capacity. An entry whose own size exceeds the
// current capacity clears the table instead of being stored.
func (dt *dynamicTable) add(entry HeaderField) {
	sz := entry.size()
	if sz > dt.capacity {
		dt.clear()
		return
	}
	for dt.size+sz > dt.capacity {
		dt.remove()
	}
	dt.ring[(dt.head+dt.count)%len(dt.ring)] = entry
	dt.count++
	dt.size += sz
}

// remove drops the oldest entry. It is a no-op if the table is empty.
func (dt *dynamicTable) remove() {
	if dt.count == 0 {
		return
	}
	evicted := dt.ring[dt.head]
	dt.size -= evicted.size()
	dt.ring[dt.head] = HeaderField{}
	dt.head = (dt.head + 1) % len(dt.ring)
	dt.count--
}

// clear empties the table.
func (dt *dynamicTable) clear() {
	for i := 0; i < dt.count; i++ {
		dt.ring[(dt.head+i)%len(dt.ring)] = HeaderField{}
	}
	dt.head = 0
	dt.count = 0
	dt.size = 0
}

// setCapacity changes the table's capacity, evicting from the oldest
// end until size fits, then reallocating the backing ring if the
// maximum-entry bound changed.
func (dt *dynamicTable) setCapacity(c uint32) {
	if c == 0 {
		dt.clear()
		dt.capacity = 0
		dt.reallocate(0)
		return
	}
	for dt.size > c {
		dt.remove()
	}
	dt.capacity = c
	dt.reallocate(c)
}

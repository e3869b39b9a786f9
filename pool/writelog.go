package pool

// WriteLog buffers mutations to an underlying Pool so a caller can
// validate a whole operation before committing it atomically. Reads
// bypass the log and go straight to the pool (per spec §4.2, reads
// always see committed state); Alloc, Set, and Free are recorded and
// replayed in Commit. Dropping a WriteLog without calling Commit frees
// any pointers it allocated and discards buffered writes/frees, leaving
// the pool exactly as it was before the log was opened.
type WriteLog struct {
	pool *Pool

	allocated map[Ptr]struct{}
	writes    map[Ptr]Cell
	// order preserves the sequence writes/frees were issued, so Commit
	// applies them in the order spec §4.2 requires: writes then frees.
	writeOrder []Ptr
	frees      map[Ptr]struct{}
	freeOrder  []Ptr

	committed bool
	dropped   bool
}

// Open starts a new write-log transaction over pool.
func Open(pool *Pool) *WriteLog {
	return &WriteLog{
		pool:      pool,
		allocated: make(map[Ptr]struct{}),
		writes:    make(map[Ptr]Cell),
		frees:     make(map[Ptr]struct{}),
	}
}

// Get reads straight through to the pool, ignoring any buffered writes —
// per spec, reads bypass the log.
func (w *WriteLog) Get(ptr Ptr) Cell {
	return w.pool.Get(ptr)
}

// Alloc allocates a new cell in the underlying pool and records it so a
// Drop without Commit will free it again.
func (w *WriteLog) Alloc(value Cell) (Ptr, error) {
	ptr, err := w.pool.Alloc(value)
	if err != nil {
		return None, err
	}
	w.allocated[ptr] = struct{}{}
	return ptr, nil
}

// Set buffers a write to ptr, applied at Commit.
func (w *WriteLog) Set(ptr Ptr, value Cell) {
	if _, ok := w.writes[ptr]; !ok {
		w.writeOrder = append(w.writeOrder, ptr)
	}
	w.writes[ptr] = value
}

// Free buffers a free of ptr, applied at Commit after all writes.
func (w *WriteLog) Free(ptr Ptr) {
	if _, ok := w.frees[ptr]; !ok {
		w.freeOrder = append(w.freeOrder, ptr)
	}
	w.frees[ptr] = struct{}{}
	delete(w.writes, ptr)
}

// Commit applies all buffered writes, then all buffered frees, to the
// underlying pool, in the order they were issued. After Commit, the log
// must not be used again.
func (w *WriteLog) Commit() {
	if w.committed || w.dropped {
		panic("pool: WriteLog committed or dropped twice")
	}
	for _, ptr := range w.writeOrder {
		w.pool.Set(ptr, w.writes[ptr])
	}
	for _, ptr := range w.freeOrder {
		w.pool.Free(ptr)
	}
	w.committed = true
}

// Drop rolls back the transaction: every pointer allocated through this
// log (and not already freed through it) is freed, and all buffered
// writes/frees are discarded. Safe to call after Commit (no-op).
func (w *WriteLog) Drop() {
	if w.committed || w.dropped {
		return
	}
	for ptr := range w.allocated {
		w.pool.Free(ptr)
	}
	w.dropped = true
}

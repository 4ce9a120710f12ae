package input

// Window accumulates local samples between sends. It keeps only the newest
// BatchSize samples, which is all a flush can transmit, and counts the rest as
// dropped. The zero value is ready to use and never allocates.
type Window struct {
	ring    [BatchSize]Sample
	head    int // index of the oldest kept sample
	count   int
	dropped uint64
}

// Append records one tick's sample, evicting the oldest if the window is full.
func (w *Window) Append(s Sample) {
	if w.count < BatchSize {
		w.ring[(w.head+w.count)%BatchSize] = s
		w.count++
		return
	}
	w.ring[w.head] = s
	w.head = (w.head + 1) % BatchSize
	w.dropped++
}

// Len returns the number of samples currently kept.
func (w *Window) Len() int {
	return w.count
}

// Dropped returns how many samples were evicted since the last Flush.
func (w *Window) Dropped() uint64 {
	return w.dropped
}

// Flush drains the window into a batch array, oldest first. Unused slots are
// zero samples. It returns the number of filled slots and the count of samples
// evicted before this flush, then clears the window.
func (w *Window) Flush() (batch [BatchSize]Sample, n int, dropped uint64) {
	for i := 0; i < w.count; i++ {
		batch[i] = w.ring[(w.head+i)%BatchSize]
	}
	n, dropped = w.count, w.dropped
	w.Clear()
	return batch, n, dropped
}

// Clear discards every kept sample.
func (w *Window) Clear() {
	w.ring = [BatchSize]Sample{}
	w.head = 0
	w.count = 0
	w.dropped = 0
}

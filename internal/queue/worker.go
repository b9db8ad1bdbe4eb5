package queue

// worker runs the pull loop of spec.md §4.3. Go has no per-goroutine
// signal mask, so unlike the source's pthread_sigmask call this worker
// relies on the process never installing a signal.Notify handler inside
// the queue package at all; a single designated goroutine elsewhere in
// the process (see cmd/logqueued) owns os/signal and calls Queue.Close,
// which is the Go-native equivalent of spec.md §5's "signals are
// delivered to the process's designated signal-handling thread".
type worker struct {
	id    int
	queue *Queue
}

func (w *worker) run() {
	q := w.queue
	defer q.workersWG.Done()

	for {
		q.mu.Lock()
		for q.size == 0 && q.state == running {
			q.notEmpty.Wait()
		}
		if q.size == 0 {
			// state != running and nothing left to drain.
			q.mu.Unlock()
			return
		}

		item, err := q.backend.remove()
		if err == errRemoveWouldBlock {
			// The disk backend's reader caught up to the writer for a
			// segment that's still being appended to; size bookkeeping
			// hasn't been decremented yet by the racing producer. Give
			// up the lock and retry rather than busy-spin holding it.
			q.mu.Unlock()
			continue
		}

		// size is decremented even on a backend error: losing one item
		// is preferable to a permanently stuck queue (spec.md §4.3, §7).
		q.size--
		q.metrics.SetSize(q.size)
		q.reportSegments()
		q.mu.Unlock()
		q.notFull.Signal()

		if err != nil {
			q.logger.Warnf("worker %d: backend remove failed, item lost: %v", w.id, err)
			q.metrics.IncErrored()
			continue
		}

		tx := q.startTransaction("queue.dequeue")
		cerr := q.consumer(item)
		endTransaction(tx, cerr)
		if cerr != nil {
			q.logger.Warnf("worker %d: consumer returned error, continuing: %v", w.id, cerr)
			q.metrics.IncErrored()
			continue
		}
		q.metrics.IncDequeued()
	}
}

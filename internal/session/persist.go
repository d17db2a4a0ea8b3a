package session

import (
	"context"
	"fmt"
	"time"

	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

// setKey is the debounce key: one pending write per set per session.
type setKey struct {
	exerciseID string
	setOrder   int
}

// persistJob is one debounced upsert handed to the persister. The
// record is snapshotted when the debounce window flushes, so the latest
// in-memory value at that moment is what gets written.
type persistJob struct {
	sessionID string
	rec       store.SetRecord
}

// collectDueLocked drains the debounce entries whose window has elapsed,
// snapshotting each set's current value. MUST be called with mu held.
func (r *Runtime) collectDueLocked(now time.Time) []persistJob {
	if len(r.pending) == 0 || r.sessionID == "" {
		return nil
	}
	var due []persistJob
	for k, dueAt := range r.pending {
		if dueAt.After(now) {
			continue
		}
		if s, ok := r.sets.Get(k.exerciseID, k.setOrder); ok {
			due = append(due, persistJob{sessionID: r.sessionID, rec: s.record()})
		}
		delete(r.pending, k)
	}
	return due
}

// flushPending force-flushes every pending entry, used as the final
// drain at shutdown. Sends block: the persister is still consuming and
// the channel is closed only after this returns.
func (r *Runtime) flushPending() {
	r.mu.Lock()
	var due []persistJob
	if r.sessionID != "" && inProgress(r.status) {
		for k := range r.pending {
			if s, ok := r.sets.Get(k.exerciseID, k.setOrder); ok {
				due = append(due, persistJob{sessionID: r.sessionID, rec: s.record()})
			}
			delete(r.pending, k)
		}
	}
	r.mu.Unlock()

	for _, job := range due {
		r.writeChan <- job
	}
}

// enqueueWrite hands a job to the persister without blocking the tick
// loop. A full queue puts the key back on the debounce map for the next
// cycle instead of dropping the write.
func (r *Runtime) enqueueWrite(job persistJob) {
	select {
	case r.writeChan <- job:
	default:
		r.logger.Printf("Runtime: Write queue full, re-queueing %s set %d", job.rec.ExerciseID, job.rec.SetOrder)
		r.requeue(job)
	}
}

// runPersister serializes all debounced set writes on one goroutine, so
// writes for the same key can never race each other. It drains the
// queue completely before exiting.
func (r *Runtime) runPersister() {
	defer r.wg.Done()

	for job := range r.writeChan {
		if err := r.persist(job); err != nil {
			r.logger.Printf("Runtime: Write for %s set %d failed, queued for retry: %v",
				job.rec.ExerciseID, job.rec.SetOrder, err)
			r.requeue(job)
		}
	}
	r.logger.Printf("Runtime: Persister exiting")
}

// persist writes one set row, collapsing duplicate rows first when the
// count check finds them. Jobs from a session that has since ended or
// been replaced are dropped.
func (r *Runtime) persist(job persistJob) error {
	r.mu.RLock()
	current := r.sessionID
	status := r.status
	r.mu.RUnlock()
	if current != job.sessionID || !inProgress(status) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	n, err := r.store.CountSetRows(ctx, job.sessionID, job.rec.ExerciseID, job.rec.SetOrder)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	if n > 1 {
		r.logger.Printf("Runtime: %d rows for %s set %d, collapsing duplicates",
			n, job.rec.ExerciseID, job.rec.SetOrder)
		if err := r.store.DeleteSetRows(ctx, job.sessionID, job.rec.ExerciseID, job.rec.SetOrder); err != nil {
			return fmt.Errorf("collapse duplicates: %w", err)
		}
	}
	if err := r.store.UpsertSet(ctx, job.sessionID, job.rec); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// requeue puts a failed or displaced write back on the debounce map so
// the next cycle retries it. An entry already pending for the key keeps
// its earlier deadline.
func (r *Runtime) requeue(job persistJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionID != job.sessionID || !inProgress(r.status) {
		return
	}
	k := setKey{exerciseID: job.rec.ExerciseID, setOrder: job.rec.SetOrder}
	if _, exists := r.pending[k]; !exists {
		r.pending[k] = r.clock().Add(debounceWindow)
	}
}

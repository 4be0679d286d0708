package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/averyong/lingodesk/internal/domain"
)

// fakeStore is an in-memory RowStore tracking statuses and versions.
type fakeStore struct {
	mu       sync.Mutex
	statuses map[string]domain.RowStatus
	versions map[string]int
	applied  map[string]RowUpdate
}

func newFakeStore(rows []domain.TranslationRow) *fakeStore {
	s := &fakeStore{
		statuses: make(map[string]domain.RowStatus),
		versions: make(map[string]int),
		applied:  make(map[string]RowUpdate),
	}
	for _, r := range rows {
		s.statuses[r.ID] = r.Status
		s.versions[r.ID] = r.Version
	}
	return s
}

func (s *fakeStore) BulkSetStatus(_ context.Context, ids []string, to domain.RowStatus, from ...domain.RowStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if len(from) > 0 {
			current := s.statuses[id]
			match := false
			for _, f := range from {
				if current == f {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		s.statuses[id] = to
	}
	return nil
}

func (s *fakeStore) ApplyTranslation(_ context.Context, id string, expectedVersion int, upd RowUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[id] != expectedVersion {
		return false, nil
	}
	s.statuses[id] = upd.Status
	s.versions[id]++
	s.applied[id] = upd
	return true, nil
}

func (s *fakeStore) status(id string) domain.RowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

func (s *fakeStore) appliedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

// fakeInvoker records batch calls and can block each call until stepped.
type fakeInvoker struct {
	mu         sync.Mutex
	configured bool
	calls      [][]string
	step       chan struct{} // when non-nil, each call waits for one receive
	err        error
}

func (f *fakeInvoker) Configured() bool { return f.configured }

func (f *fakeInvoker) Translate(ctx context.Context, rows []domain.TranslationRow, _ domain.PromptTemplate, _ []domain.GlossaryTerm, targetLangs []string) ([]Result, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	f.mu.Lock()
	f.calls = append(f.calls, ids)
	step := f.step
	err := f.err
	f.mu.Unlock()

	if step != nil {
		select {
		case <-step:
		case <-time.After(5 * time.Second):
			return nil, errors.New("test step timeout")
		}
	}
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		target := make(map[string]string, len(targetLangs))
		for _, lang := range targetLangs {
			target[lang] = "t:" + r.SourceText
		}
		results = append(results, Result{ID: r.ID, TargetText: target, Status: domain.RowStatusReview})
	}
	return results, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeInvoker) callSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, 0, len(f.calls))
	for _, c := range f.calls {
		sizes = append(sizes, len(c))
	}
	return sizes
}

type fakeGlossary struct{}

func (fakeGlossary) ActiveTerms(context.Context, int) ([]domain.GlossaryTerm, error) {
	return nil, nil
}

func makeRows(n int) []domain.TranslationRow {
	rows := make([]domain.TranslationRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, domain.TranslationRow{
			ID:         fmt.Sprintf("row-%02d", i),
			ProjectID:  "p1",
			SourceText: fmt.Sprintf("text %d", i),
			Status:     domain.RowStatusPending,
			Version:    1,
		})
	}
	return rows
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestQueue(inv *fakeInvoker, store *fakeStore, batchSize int) *Queue {
	return NewQueue("p1", inv, NewProjector(store), fakeGlossary{}, QueueConfig{
		BatchSize:       batchSize,
		Throttle:        0,
		TargetLanguages: []string{"en", "ms", "zh"},
	})
}

func TestEnqueuePartitionsAndDrains(t *testing.T) {
	rows := makeRows(23)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{Name: "default"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "queue drain", func() bool { return !q.Running() })

	sizes := inv.callSizes()
	want := []int{10, 10, 3}
	if len(sizes) != len(want) {
		t.Fatalf("got %d batches, want %d", len(sizes), len(want))
	}
	for i, n := range want {
		if sizes[i] != n {
			t.Errorf("batch %d size = %d, want %d", i, sizes[i], n)
		}
	}

	// Submission order is preserved within and across batches.
	inv.mu.Lock()
	flat := []string{}
	for _, c := range inv.calls {
		flat = append(flat, c...)
	}
	inv.mu.Unlock()
	for i, id := range flat {
		if id != rows[i].ID {
			t.Fatalf("order broken at %d: got %s, want %s", i, id, rows[i].ID)
		}
	}

	for _, r := range rows {
		if got := store.status(r.ID); got != domain.RowStatusReview {
			t.Errorf("row %s status = %s, want review", r.ID, got)
		}
	}

	if p := q.Progress(); p.Current != 0 || p.Total != 0 {
		t.Errorf("progress after drain = %+v, want zero", p)
	}
}

func TestEnqueueRequiresConfiguredAPI(t *testing.T) {
	rows := makeRows(3)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: false}
	q := newTestQueue(inv, store, 10)

	err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{})
	if !errors.Is(err, ErrAPINotConfigured) {
		t.Fatalf("err = %v, want ErrAPINotConfigured", err)
	}
	for _, r := range rows {
		if got := store.status(r.ID); got != domain.RowStatusPending {
			t.Errorf("row %s status = %s, want pending (untouched)", r.ID, got)
		}
	}
}

func TestEnqueueEmptyIsNoop(t *testing.T) {
	inv := &fakeInvoker{configured: true}
	q := newTestQueue(inv, newFakeStore(nil), 10)

	if err := q.Enqueue(context.Background(), nil, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if q.Running() {
		t.Error("queue should stay idle on empty enqueue")
	}
	if inv.callCount() != 0 {
		t.Errorf("invoker called %d times, want 0", inv.callCount())
	}
}

func TestEnqueueMarksQueuedSynchronously(t *testing.T) {
	rows := makeRows(15)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// The invoker is blocked on the first batch; by the time Enqueue returned
	// every row had already left pending.
	for _, r := range rows {
		got := store.status(r.ID)
		if got != domain.RowStatusQueued && got != domain.RowStatusTranslating {
			t.Errorf("row %s status = %s, want queued or translating", r.ID, got)
		}
	}

	inv.step <- struct{}{}
	inv.step <- struct{}{}
	waitFor(t, "queue drain", func() bool { return !q.Running() })
}

func TestEnqueueSkipsRowsAlreadyInFlight(t *testing.T) {
	rows := makeRows(5)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	waitFor(t, "first batch started", func() bool { return inv.callCount() == 1 })

	// Same rows again while the first batch is in flight: all duplicates.
	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}

	inv.step <- struct{}{}
	waitFor(t, "queue drain", func() bool { return !q.Running() })

	if got := inv.callCount(); got != 1 {
		t.Fatalf("invoker called %d times, want 1 (no double enqueue)", got)
	}
}

func TestCancelRevertsPendingWork(t *testing.T) {
	rows := makeRows(20)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, "first batch started", func() bool { return inv.callCount() == 1 })

	q.Cancel(context.Background())

	// Let the in-flight call settle; its result must be discarded.
	inv.step <- struct{}{}
	waitFor(t, "queue stop", func() bool { return !q.Running() })

	if got := inv.callCount(); got != 1 {
		t.Fatalf("invoker called %d times after cancel, want 1", got)
	}
	if store.appliedCount() != 0 {
		t.Errorf("applied %d results after cancel, want 0", store.appliedCount())
	}
	for _, r := range rows {
		if got := store.status(r.ID); got != domain.RowStatusPending {
			t.Errorf("row %s status = %s, want pending after cancel", r.ID, got)
		}
	}
	if p := q.Progress(); p.Current != 0 || p.Total != 0 {
		t.Errorf("progress after cancel = %+v, want zero", p)
	}
}

func TestCancelAfterFirstBatchSettles(t *testing.T) {
	rows := makeRows(30)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// First batch completes; second is in flight when the cancel arrives.
	inv.step <- struct{}{}
	waitFor(t, "first batch settle", func() bool { return q.Progress().Current == 1 })
	waitFor(t, "second batch start", func() bool { return inv.callCount() == 2 })

	q.Cancel(context.Background())
	inv.step <- struct{}{}
	waitFor(t, "queue stop", func() bool { return !q.Running() })

	// The settled batch keeps its results; everything else reverts.
	for i, r := range rows {
		want := domain.RowStatusPending
		if i < 10 {
			want = domain.RowStatusReview
		}
		if got := store.status(r.ID); got != want {
			t.Errorf("row %s status = %s, want %s", r.ID, got, want)
		}
	}
	if got := inv.callCount(); got != 2 {
		t.Errorf("invoker called %d times, want 2 (third batch never started)", got)
	}
}

func TestCancelIdleQueueIsNoop(t *testing.T) {
	inv := &fakeInvoker{configured: true}
	q := newTestQueue(inv, newFakeStore(nil), 10)

	q.Cancel(context.Background())
	if q.Running() {
		t.Error("idle queue should stay idle after cancel")
	}
}

func TestQueueUsableAfterCancel(t *testing.T) {
	rows := makeRows(10)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, "first batch started", func() bool { return inv.callCount() == 1 })
	q.Cancel(context.Background())
	inv.step <- struct{}{}
	waitFor(t, "queue stop", func() bool { return !q.Running() })

	// Unblock subsequent calls entirely.
	inv.mu.Lock()
	inv.step = nil
	inv.mu.Unlock()

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	waitFor(t, "second drain", func() bool { return !q.Running() })

	if got := inv.callCount(); got != 2 {
		t.Fatalf("invoker called %d times, want 2", got)
	}
	for _, r := range rows {
		if got := store.status(r.ID); got != domain.RowStatusReview {
			t.Errorf("row %s status = %s, want review", r.ID, got)
		}
	}
}

func TestProgressAdvancesPerBatch(t *testing.T) {
	rows := makeRows(30)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if p := q.Progress(); p.Total != 3 {
		t.Fatalf("progress total = %d, want 3", p.Total)
	}

	inv.step <- struct{}{}
	waitFor(t, "first batch settle", func() bool { return q.Progress().Current == 1 })

	inv.step <- struct{}{}
	waitFor(t, "second batch settle", func() bool { return q.Progress().Current == 2 })

	inv.step <- struct{}{}
	waitFor(t, "queue drain", func() bool { return !q.Running() })
}

func TestBatchFailureMarksRowsAndContinues(t *testing.T) {
	rows := makeRows(20)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, err: errors.New("provider exploded")}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, "queue drain", func() bool { return !q.Running() })

	// One failed batch does not stop the loop; both batches were attempted.
	if got := inv.callCount(); got != 2 {
		t.Fatalf("invoker called %d times, want 2", got)
	}
	for _, r := range rows {
		if got := store.status(r.ID); got != domain.RowStatusError {
			t.Errorf("row %s status = %s, want error", r.ID, got)
		}
	}
}

func TestStaleResultDroppedAfterManualEdit(t *testing.T) {
	rows := makeRows(5)
	store := newFakeStore(rows)
	inv := &fakeInvoker{configured: true, step: make(chan struct{})}
	q := newTestQueue(inv, store, 10)

	if err := q.Enqueue(context.Background(), rows, domain.PromptTemplate{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitFor(t, "batch started", func() bool { return inv.callCount() == 1 })

	// Simulate a manual edit bumping the version while the call is in flight.
	store.mu.Lock()
	store.versions["row-02"]++
	store.mu.Unlock()

	inv.step <- struct{}{}
	waitFor(t, "queue drain", func() bool { return !q.Running() })

	if store.appliedCount() != 4 {
		t.Fatalf("applied %d results, want 4 (stale one dropped)", store.appliedCount())
	}
	store.mu.Lock()
	_, applied := store.applied["row-02"]
	store.mu.Unlock()
	if applied {
		t.Error("stale result for edited row should have been dropped")
	}
}

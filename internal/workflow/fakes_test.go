package workflow_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mautops/review-gin/internal/workflow"
)

// memRegistry 内存版提交仓储,ConditionalUpdate 在锁内比较状态
type memRegistry struct {
	mu      sync.Mutex
	records map[string]*workflow.Submission
	trail   map[string][]workflow.TrailEntry
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		records: make(map[string]*workflow.Submission),
		trail:   make(map[string][]workflow.TrailEntry),
	}
}

func (r *memRegistry) Load(_ context.Context, id string) (*workflow.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return nil, workflow.Errorf(workflow.CodeNotFound, "submission %s not found", id)
	}
	return s.Clone(), nil
}

func (r *memRegistry) Create(_ context.Context, s *workflow.Submission, entry workflow.TrailEntry) error {
	if err := workflow.CheckInvariants(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[s.ID] = s.Clone()
	r.trail[s.ID] = append(r.trail[s.ID], entry)
	return nil
}

func (r *memRegistry) Remove(_ context.Context, id string, expected workflow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return workflow.Errorf(workflow.CodeNotFound, "submission %s not found", id)
	}
	if s.State() != expected {
		return workflow.Errorf(workflow.CodeConflict, "submission %s changed", id)
	}
	delete(r.records, id)
	delete(r.trail, id)
	return nil
}

func (r *memRegistry) ConditionalUpdate(_ context.Context, id string, expected workflow.State, mutate workflow.Mutator) (*workflow.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return nil, workflow.Errorf(workflow.CodeNotFound, "submission %s not found", id)
	}
	if s.State() != expected {
		return nil, workflow.Errorf(workflow.CodeConflict, "submission %s is %s", id, s.State())
	}
	cur := s.Clone()
	entry, err := mutate(cur)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckInvariants(cur); err != nil {
		return nil, err
	}
	r.records[id] = cur.Clone()
	r.trail[id] = append(r.trail[id], entry)
	return cur, nil
}

func (r *memRegistry) List(_ context.Context, f workflow.Filter) ([]*workflow.Submission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*workflow.Submission
	for _, s := range r.records {
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.OwnedBy != "" && s.CurrentOwner != f.OwnedBy {
			continue
		}
		if f.OrgUnit != "" && s.OrgUnit != f.OrgUnit {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memRegistry) entries(id string) []workflow.TrailEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]workflow.TrailEntry(nil), r.trail[id]...)
}

// stubDirectory 固定的审批人目录
type stubDirectory struct {
	mu        sync.Mutex
	reviewers map[string][]string // key: orgUnit/stage
	units     map[string]string
	err       error

	// barrier 非空时 SecondReviewer 查询在此等待,用于让并发调用都越过 Load
	barrier *sync.WaitGroup
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		reviewers: make(map[string][]string),
		units:     make(map[string]string),
	}
}

func (d *stubDirectory) set(orgUnit string, stage workflow.Stage, ids ...string) *stubDirectory {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reviewers[orgUnit+"/"+string(stage)] = ids
	return d
}

func (d *stubDirectory) ReviewersFor(_ context.Context, orgUnit string, stage workflow.Stage) ([]string, error) {
	if stage == workflow.StageSecondReviewer && d.barrier != nil {
		d.barrier.Done()
		d.barrier.Wait()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return append([]string(nil), d.reviewers[orgUnit+"/"+string(stage)]...), nil
}

func (d *stubDirectory) OrgUnitOf(_ context.Context, identity string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.units[identity], nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []workflow.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt workflow.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []workflow.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]workflow.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// stepClock 每次调用前进一秒
func stepClock(start time.Time) workflow.Clock {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

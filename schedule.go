package strata

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// task is one planned system: its bound query plus the borrow sets conflict
// checks run against.
type task struct {
	sys    *System
	query  *Query
	order  int // declaration position
	reads  maskType
	writes maskType
	// Entry-view components may touch any entity's row, so they conflict
	// world-wide rather than per matching archetype.
	entryReads  maskType
	entryWrites maskType
	resReads    map[int]struct{}
	resWrites   map[int]struct{}
}

func newTask(s *System, q *Query) *task {
	t := &task{
		sys:       s,
		query:     q,
		resReads:  make(map[int]struct{}),
		resWrites: make(map[int]struct{}),
	}
	v := q.view
	t.reads = v.reads()
	t.writes = v.writes
	if q.entryView != nil {
		ev := q.entryView
		t.entryReads = ev.reads()
		t.entryWrites = ev.writes
	}
	for _, id := range q.resReads {
		t.resReads[id] = struct{}{}
	}
	for _, id := range q.resWrites {
		t.resWrites[id] = struct{}{}
	}
	return t
}

// borrowMask returns every component the task can touch.
func (self *task) borrowMask() maskType {
	m := orMask(self.reads, self.writes)
	return orMask(m, orMask(self.entryReads, self.entryWrites))
}

// conflicts reports whether two tasks may not share a stage. Two mutable
// borrows of a column conflict, as does mutable plus any borrow; resources
// follow the same rule. Entry views follow it too, against whole columns:
// entry access resolves rows dynamically, so its borrows span every
// archetype containing the component.
func (self *task) conflicts(other *task) bool {
	selfMut := orMask(self.writes, self.entryWrites)
	selfAll := self.borrowMask()
	otherMut := orMask(other.writes, other.entryWrites)
	otherAll := other.borrowMask()
	if intersects(selfMut, otherAll) || intersects(otherMut, selfAll) {
		return true
	}
	for id := range self.resWrites {
		if _, ok := other.resWrites[id]; ok {
			return true
		}
		if _, ok := other.resReads[id]; ok {
			return true
		}
	}
	for id := range self.resReads {
		if _, ok := other.resWrites[id]; ok {
			return true
		}
	}
	return false
}

// hasNonSync reports whether the task borrows any non-Sync component or
// resource.
func (self *task) hasNonSync(w *World) bool {
	if intersects(self.borrowMask(), w.registry.nonSync) {
		return true
	}
	for id := range self.resReads {
		if w.resources.isNonSync(id) {
			return true
		}
	}
	for id := range self.resWrites {
		if w.resources.isNonSync(id) {
			return true
		}
	}
	return false
}

// checkSync rejects non-Sync borrows in a parallel system.
func (self *task) checkSync(w *World) error {
	if self.sys.parallel() && self.hasNonSync(w) {
		return errors.Wrapf(ErrNonSync, "system %q", self.sys.Name)
	}
	return nil
}

// Schedule is an ordered list of systems packed into stages of mutually
// borrow-compatible tasks. Within a stage, systems run concurrently in
// unspecified order; between stages, order is strict.
type Schedule struct {
	world  *World
	tasks  []*task
	stages [][]*task
}

// NewSchedule plans the systems into stages. Planning is greedy: each system
// is assigned, in declaration order, to the earliest stage past all of its
// conflicting predecessors whose members it is borrow-compatible with, or a
// new stage is opened. Shape errors and non-Sync violations surface here,
// never at run time.
func NewSchedule(w *World, systems ...*System) (*Schedule, error) {
	sched := &Schedule{world: w}
	for i, s := range systems {
		q, err := s.bind(w)
		if err != nil {
			return nil, errors.Wrapf(err, "system %q", s.Name)
		}
		t := newTask(s, q)
		t.order = i
		if err := t.checkSync(w); err != nil {
			return nil, err
		}
		sched.tasks = append(sched.tasks, t)
	}
	stageOf := make(map[*task]int, len(sched.tasks))
	for _, t := range sched.tasks {
		// A conflicting predecessor pins the earliest admissible stage: the
		// task may never run in or before the stage that predecessor
		// occupies.
		minStage := 0
		for _, pred := range sched.tasks[:t.order] {
			if pred.conflicts(t) && stageOf[pred] >= minStage {
				minStage = stageOf[pred] + 1
			}
		}
		placed := false
		for si := minStage; si < len(sched.stages); si++ {
			if stageAccepts(w, sched.stages[si], t) {
				sched.stages[si] = append(sched.stages[si], t)
				stageOf[t] = si
				placed = true
				break
			}
		}
		if !placed {
			sched.stages = append(sched.stages, []*task{t})
			stageOf[t] = len(sched.stages) - 1
		}
	}
	w.logger.Debug("schedule planned",
		zap.Int("systems", len(sched.tasks)),
		zap.Int("stages", len(sched.stages)))
	return sched, nil
}

// stageAccepts reports whether the task can join the stage: it must be
// borrow-compatible with every member, and a non-Sync task can only occupy a
// stage alone.
func stageAccepts(w *World, stage []*task, t *task) bool {
	if len(stage) > 0 && t.hasNonSync(w) {
		return false
	}
	for _, member := range stage {
		if member.hasNonSync(w) || member.conflicts(t) {
			return false
		}
	}
	return true
}

// Stages returns the planned stage layout as system names, for inspection.
func (self *Schedule) Stages() [][]string {
	out := make([][]string, len(self.stages))
	for i, stage := range self.stages {
		for _, t := range stage {
			out[i] = append(out[i], t.sys.Name)
		}
	}
	return out
}

// Run executes the schedule once. Dispatch is task-granular: a task starts
// as soon as every earlier-declared task it conflicts with has completed and
// it is borrow-compatible with everything currently running. This promotes
// tasks across the static stage boundaries whenever earlier stages finish
// partially; the observable effects are identical to running the stages
// strictly in order.
func (self *Schedule) Run() error {
	n := len(self.tasks)
	if n == 0 {
		return nil
	}
	if n == 1 {
		runTask(self.tasks[0])
		return nil
	}
	done := make([]bool, n)
	running := make([]bool, n)
	completions := make(chan int, n)
	completed := 0
	active := 0
	for completed < n {
		for i, t := range self.tasks {
			if done[i] || running[i] || !self.eligible(i, t, done, running, active) {
				continue
			}
			running[i] = true
			active++
			idx, tk := i, t
			go func() {
				runTask(tk)
				completions <- idx
			}()
		}
		i := <-completions
		running[i] = false
		done[i] = true
		active--
		completed++
	}
	return nil
}

// eligible reports whether the task may start now: its borrow-chain
// predecessors are done, it conflicts with nothing running, and non-Sync
// exclusivity holds.
func (self *Schedule) eligible(i int, t *task, done, running []bool, active int) bool {
	for j := 0; j < i; j++ {
		if !done[j] && self.tasks[j].conflicts(t) {
			return false
		}
	}
	for j, r := range running {
		if r && self.tasks[j].conflicts(t) {
			return false
		}
	}
	if t.hasNonSync(self.world) && active > 0 {
		return false
	}
	if active > 0 {
		for j, r := range running {
			if r && self.tasks[j].hasNonSync(self.world) {
				return false
			}
		}
	}
	return true
}

func runTask(t *task) {
	if t.sys.RunPar != nil {
		t.sys.RunPar(t.query)
		return
	}
	t.sys.Run(t.query)
}

package strata

// System is a user routine bound to a query shape: views, filter, entry
// views and resource views, plus a run callback receiving the bound query.
// A system with RunPar set is a parallel system; its callback is expected to
// drive the query's parallel iterator.
type System struct {
	// Name identifies the system in logs and errors.
	Name string
	// View declares the component columns the system borrows per row.
	View *View
	// Options carry the filter, entry views and resource views, resolved
	// against the world when the system is bound.
	Options []QueryOption
	// Run drives serial iteration. Exactly one of Run and RunPar is set.
	Run func(q *Query)
	// RunPar drives parallel iteration via the query's parallel driver.
	RunPar func(q *Query)
}

// parallel reports whether the system requests parallel dispatch.
func (self *System) parallel() bool {
	return self.RunPar != nil
}

// bind resolves the system's declaration against a world.
func (self *System) bind(w *World) (*Query, error) {
	v := self.View
	if v == nil {
		v = &View{}
	}
	return NewQuery(w, v, self.Options...)
}

// RunSystem binds the system to the world and runs it. Parallel systems are
// routed through RunParSystem and its non-Sync check.
func (self *World) RunSystem(s *System) error {
	if s.parallel() {
		return self.RunParSystem(s)
	}
	q, err := s.bind(self)
	if err != nil {
		return err
	}
	s.Run(q)
	return nil
}

// RunParSystem binds the system and runs its parallel callback, or Run when
// RunPar is unset. When RunPar is set, non-Sync components or resources in
// the system's borrows are rejected.
func (self *World) RunParSystem(s *System) error {
	q, err := s.bind(self)
	if err != nil {
		return err
	}
	t := newTask(s, q)
	if err := t.checkSync(self); err != nil {
		return err
	}
	if s.RunPar != nil {
		s.RunPar(q)
		return nil
	}
	s.Run(q)
	return nil
}

// RunSchedule plans the systems into stages and runs them once. For repeated
// ticking, build the Schedule once with NewSchedule and call Run each tick.
func (self *World) RunSchedule(systems ...*System) error {
	sched, err := NewSchedule(self, systems...)
	if err != nil {
		return err
	}
	return sched.Run()
}

package kiexport

import "iter"

// StatusMap records the success of every command of a run in run order.
type StatusMap struct {
	keys []string
	ok   map[string]bool
}

// NewStatusMap returns an empty status map.
func NewStatusMap() *StatusMap {
	return &StatusMap{ok: make(map[string]bool)}
}

// Set records the status of name. A name keeps its first position.
func (s *StatusMap) Set(name string, ok bool) {
	if _, seen := s.ok[name]; !seen {
		s.keys = append(s.keys, name)
	}
	s.ok[name] = ok
}

// Get returns the status of name and whether it was recorded.
func (s *StatusMap) Get(name string) (ok, found bool) {
	ok, found = s.ok[name]
	return ok, found
}

// Len returns the number of recorded commands.
func (s *StatusMap) Len() int { return len(s.keys) }

// All iterates the statuses in run order.
func (s *StatusMap) All() iter.Seq2[string, bool] {
	return func(yield func(string, bool) bool) {
		for _, k := range s.keys {
			if !yield(k, s.ok[k]) {
				return
			}
		}
	}
}

// AllOK reports whether at least one command ran and none failed.
func (s *StatusMap) AllOK() bool {
	if len(s.keys) == 0 {
		return false
	}
	for _, ok := range s.ok {
		if !ok {
			return false
		}
	}
	return true
}

// Failed returns the names of the failed commands in run order.
func (s *StatusMap) Failed() []string {
	var failed []string
	for k, ok := range s.All() {
		if !ok {
			failed = append(failed, k)
		}
	}
	return failed
}

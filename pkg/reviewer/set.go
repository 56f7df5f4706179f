// Package reviewer implements the reviewer selection pipeline: code-ownership
// matching, recent-author blame analysis, default fallbacks, and the
// exclusion, working-hours, and permission filters.
package reviewer

// set is an ordered, duplicate-free collection of usernames. Insertion order
// is preserved and determines truncation priority.
type set struct {
	members map[string]struct{}
	order   []string
}

func newSet() *set {
	return &set{members: make(map[string]struct{})}
}

// add inserts a user and reports whether the user was newly added.
func (s *set) add(user string) bool {
	if _, ok := s.members[user]; ok {
		return false
	}
	s.members[user] = struct{}{}
	s.order = append(s.order, user)
	return true
}

// remove deletes a user, preserving the order of the rest.
func (s *set) remove(user string) {
	if _, ok := s.members[user]; !ok {
		return
	}
	delete(s.members, user)
	for i, u := range s.order {
		if u == user {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *set) has(user string) bool {
	_, ok := s.members[user]
	return ok
}

func (s *set) len() int {
	return len(s.order)
}

// users returns the members in insertion order.
func (s *set) users() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// keep retains only the members for which the predicate holds.
func (s *set) keep(pred func(user string) bool) {
	kept := s.order[:0]
	for _, u := range s.order {
		if pred(u) {
			kept = append(kept, u)
		} else {
			delete(s.members, u)
		}
	}
	s.order = kept
}

// truncate keeps the first n members.
func (s *set) truncate(n int) {
	if len(s.order) <= n {
		return
	}
	for _, u := range s.order[n:] {
		delete(s.members, u)
	}
	s.order = s.order[:n]
}

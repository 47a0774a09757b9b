package notifications

import "sync"

type seenKey struct {
	doseID string
	kind   Kind
}

// SeenSet es un Seen en memoria, seguro para uso concurrente.
type SeenSet struct {
	mu sync.RWMutex
	m  map[seenKey]struct{}
}

func NewSeenSet(sent ...Sent) *SeenSet {
	s := &SeenSet{m: make(map[seenKey]struct{}, len(sent))}
	for _, v := range sent {
		s.m[seenKey{v.DoseID, v.Kind}] = struct{}{}
	}
	return s
}

func (s *SeenSet) Seen(doseID string, kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[seenKey{doseID, kind}]
	return ok
}

func (s *SeenSet) Add(doseID string, kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[seenKey{doseID, kind}] = struct{}{}
}

func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

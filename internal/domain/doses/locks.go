package doses

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// stripedLocks serializa confirm/sweep sobre la misma dosis dentro del proceso.
// Entre procesos lo cubre el compare-and-set del repositorio.
type stripedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

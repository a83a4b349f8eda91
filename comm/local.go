package comm

import (
	"fmt"
	"sync"
)

type localGroup struct {
	boxes []*mailbox
	once  sync.Once
}

func (g *localGroup) abort(err error) {
	g.once.Do(func() {
		for _, box := range g.boxes {
			box.close(err)
		}
	})
}

// Local is a rank of a group whose processes are goroutines of the same
// program.
type Local struct {
	rank  int
	group *localGroup
}

// NewLocalGroup creates the communicators of a size-rank group, indexed by
// rank. Each one must be driven by a single goroutine.
func NewLocalGroup(size int) []*Local {
	group := &localGroup{boxes: make([]*mailbox, size)}
	ranks := make([]*Local, size)
	for i := 0; i < size; i++ {
		group.boxes[i] = newMailbox()
		ranks[i] = &Local{rank: i, group: group}
	}
	return ranks
}

func (l *Local) Rank() int { return l.rank }
func (l *Local) Size() int { return len(l.group.boxes) }

func (l *Local) Send(dest int, tag Tag, payload []byte) error {
	if err := checkRank(dest, l.Size()); err != nil {
		return err
	}

	// the receiver owns its copy
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return l.group.boxes[dest].put(Message{Source: l.rank, Tag: tag, Payload: buf})
}

func (l *Local) Recv(source int, tag Tag) (Message, error) {
	if source != AnySource {
		if err := checkRank(source, l.Size()); err != nil {
			return Message{}, err
		}
	}
	return l.group.boxes[l.rank].take(source, tag)
}

func (l *Local) Abort(err error) {
	l.group.abort(abortError(l.rank, err))
}

// RunLocal runs fn once per rank of a new local group of the given size
// and waits for all of them. The first rank to fail aborts the group, so
// the others return instead of blocking; its error is the one returned.
func RunLocal(size int, fn func(c Communicator) error) error {
	if size < 1 {
		return fmt.Errorf("comm: group size must be positive, got %d", size)
	}

	ranks := NewLocalGroup(size)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	wg.Add(size)
	for _, c := range ranks {
		go func(c *Local) {
			defer wg.Done()
			if err := fn(c); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
				c.Abort(err)
			}
		}(c)
	}
	wg.Wait()

	return first
}

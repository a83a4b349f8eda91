package comm

import "sync"

// mailbox queues the messages delivered to one rank until they are received
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Message
	err     error
}

func newMailbox() *mailbox {
	m := new(mailbox)
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) put(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.pending = append(m.pending, msg)
	m.cond.Broadcast()
	return nil
}

// take removes the oldest pending message matching source and tag
func (m *mailbox) take(source int, tag Tag) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.err != nil {
			return Message{}, m.err
		}
		for i, msg := range m.pending {
			if matches(msg, source, tag) {
				m.pending = append(m.pending[:i], m.pending[i+1:]...)
				return msg, nil
			}
		}
		m.cond.Wait()
	}
}

// close wakes every blocked receiver; the first error wins
func (m *mailbox) close(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err == nil {
		m.err = err
	}
	m.cond.Broadcast()
}

func matches(msg Message, source int, tag Tag) bool {
	if source != AnySource && msg.Source != source {
		return false
	}
	if tag == AnyTag {
		return msg.Tag < reservedTag
	}
	return msg.Tag == tag
}

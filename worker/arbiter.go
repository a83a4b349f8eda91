package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

// Arbiter asks the coordinator for the single write token before a write
// to a shared output and gives it back right after.
// --> a denied request is retried every Delay, at most MaxAttempts times (0: no limit)
// --> an inline arbiter always grants: nothing else writes
type Arbiter struct {
	Delay       time.Duration
	MaxAttempts int

	comm        comm.Communicator
	coordinator int
	inline      bool
	held        bool

	Requests int // requests sent, granted or not
}

func NewArbiter(c comm.Communicator, coordinator int) *Arbiter {
	return &Arbiter{Delay: pollDelay, comm: c, coordinator: coordinator}
}

// NewInlineArbiter serves a rank running tasks with no other writer.
func NewInlineArbiter() *Arbiter {
	return &Arbiter{inline: true}
}

// Acquire blocks until the write token is granted.
func (a *Arbiter) Acquire() error {
	if a.held {
		return nil
	}
	if a.inline {
		a.held = true
		return nil
	}

	for attempt := 1; ; attempt++ {
		if err := a.comm.Send(a.coordinator, comm.Tag(utils.WriteRequest), nil); err != nil {
			return err
		}
		a.Requests++

		msg, err := a.comm.Recv(a.coordinator, comm.Tag(utils.WriteGrant))
		if err != nil {
			return err
		}
		var granted bool
		if err = json.Unmarshal(msg.Payload, &granted); err != nil {
			return fmt.Errorf("write grant unmarshalling: %w", err)
		}
		if granted {
			a.held = true
			return nil
		}

		if a.MaxAttempts > 0 && attempt >= a.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrWriteDenied, attempt)
		}
		time.Sleep(a.Delay)
	}
}

// Release gives the token back. Releasing a token not held does nothing.
func (a *Arbiter) Release() error {
	if !a.held {
		return nil
	}
	a.held = false
	if a.inline {
		return nil
	}
	return a.comm.Send(a.coordinator, comm.Tag(utils.WriteRelease), nil)
}

// Do runs write while holding the token.
func (a *Arbiter) Do(write func() error) error {
	if err := a.Acquire(); err != nil {
		return err
	}
	err := write()
	if rerr := a.Release(); err == nil {
		err = rerr
	}
	return err
}

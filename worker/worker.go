// Package worker runs the worker side of the task dispatcher: it pulls
// tasks from the coordinator one at a time and serializes its writes to
// shared outputs through the coordinator's write token.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
)

const (
	pollDelay = 50 * time.Millisecond // wait between two denied write requests
)

var (
	Debug = false

	// ErrWriteDenied means the write token was still denied after the
	// arbiter's last attempt.
	ErrWriteDenied = errors.New("worker: write permission denied")
	// ErrProtocol reports an unexpected dispatcher message.
	ErrProtocol = errors.New("worker: unexpected dispatcher message")
)

// Handler processes one task. Writes to shared outputs go through arb.
type Handler func(task utils.Task, arb *Arbiter) error

// Run pulls tasks from coordinator until it is told to exit and returns
// the number of tasks this worker processed. A nil arb is replaced by
// NewArbiter(c, coordinator).
func Run(c comm.Communicator, coordinator int, arb *Arbiter, handle Handler) (int, error) {
	if arb == nil {
		arb = NewArbiter(c, coordinator)
	}
	processed := 0

	for {
		if err := c.Send(coordinator, comm.Tag(utils.Ready), nil); err != nil {
			return processed, err
		}
		msg, err := c.Recv(coordinator, comm.AnyTag)
		if err != nil {
			return processed, err
		}

		switch kind := utils.Kind(msg.Tag); kind {
		case utils.Start:
			var task utils.Task
			if err = json.Unmarshal(msg.Payload, &task); err != nil {
				return processed, fmt.Errorf("task unmarshalling: %w", err)
			}
			if Debug {
				log.Printf("--> worker %d: starting task %d (%s)", c.Rank(), task.ID, task.File)
			}

			if err = handle(task, arb); err != nil {
				return processed, fmt.Errorf("task %d (%s): %w", task.ID, task.File, err)
			}
			// a token still held is given back by DONE
			arb.held = false

			done, _ := json.Marshal(task.ID)
			if err = c.Send(coordinator, comm.Tag(utils.Done), done); err != nil {
				return processed, err
			}
			processed++

		case utils.Exit:
			if Debug {
				log.Printf("--> worker %d: exiting after %d tasks", c.Rank(), processed)
			}
			return processed, c.Send(coordinator, comm.Tag(utils.Exit), nil)

		default:
			return processed, fmt.Errorf("%w: %v while waiting for a task", ErrProtocol, kind)
		}
	}
}

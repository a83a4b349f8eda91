// Package master runs the coordinator side of the task dispatcher: a pull
// based queue handing one task at a time to idle workers, and the arbiter
// owning the single write token of the shared outputs.
package master

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/cxhernandez/clusterLP-MPI/comm"
	"github.com/cxhernandez/clusterLP-MPI/utils"
	"github.com/cxhernandez/clusterLP-MPI/worker"
)

const noHolder = -1

var (
	Debug = false

	// ErrProtocol reports a message the coordinator cannot accept in its
	// current state.
	ErrProtocol = errors.New("master: dispatcher protocol violation")
	// ErrIncomplete means the workers exited with tasks not completed.
	ErrIncomplete = errors.New("master: tasks left incomplete")
)

// Stats : counters of one dispatch
type Stats struct {
	Assigned  int
	Completed int
	Closed    int // workers that acknowledged EXIT
	Grants    int
	Denials   int
}

// Coordinator serves the dispatcher protocol on one rank.
type Coordinator struct {
	comm  comm.Communicator
	tasks []utils.Task
	next  int

	running map[int]int // worker rank -> task id
	holder  int         // rank holding the write token

	Stats Stats
}

func NewCoordinator(c comm.Communicator, tasks []utils.Task) *Coordinator {
	return &Coordinator{
		comm:    c,
		tasks:   tasks,
		running: make(map[int]int),
		holder:  noHolder,
	}
}

// Serve answers the workers until every one of them acknowledged EXIT.
func (m *Coordinator) Serve() (Stats, error) {
	workers := m.comm.Size() - 1

	for m.Stats.Closed < workers {
		msg, err := m.comm.Recv(comm.AnySource, comm.AnyTag)
		if err != nil {
			return m.Stats, err
		}
		if err = m.handle(msg); err != nil {
			return m.Stats, err
		}
	}

	if m.Stats.Assigned != len(m.tasks) || m.Stats.Completed != m.Stats.Assigned {
		return m.Stats, fmt.Errorf("%w: %d tasks, %d assigned, %d completed",
			ErrIncomplete, len(m.tasks), m.Stats.Assigned, m.Stats.Completed)
	}
	return m.Stats, nil
}

func (m *Coordinator) handle(msg comm.Message) error {
	src := msg.Source

	switch kind := utils.Kind(msg.Tag); kind {
	case utils.Ready:
		if _, busy := m.running[src]; busy {
			return fmt.Errorf("%w: READY from rank %d still running task %d", ErrProtocol, src, m.running[src])
		}
		if m.next == len(m.tasks) {
			return m.comm.Send(src, comm.Tag(utils.Exit), nil)
		}

		task := m.tasks[m.next]
		payload, err := json.Marshal(&task)
		if err != nil {
			return fmt.Errorf("task %d marshalling: %w", task.ID, err)
		}
		if err = m.comm.Send(src, comm.Tag(utils.Start), payload); err != nil {
			return err
		}
		m.next++
		m.running[src] = task.ID
		m.Stats.Assigned++
		if Debug {
			log.Printf("--> task %d (%s) sent to rank %d", task.ID, task.File, src)
		}

	case utils.Done:
		var id int
		if err := json.Unmarshal(msg.Payload, &id); err != nil {
			return fmt.Errorf("DONE unmarshalling: %w", err)
		}
		if running, ok := m.running[src]; !ok || running != id {
			return fmt.Errorf("%w: DONE for task %d from rank %d", ErrProtocol, id, src)
		}
		delete(m.running, src)
		m.Stats.Completed++
		if m.holder == src {
			m.holder = noHolder
		}

	case utils.WriteRequest:
		granted := m.holder == noHolder || m.holder == src
		if granted {
			m.holder = src
			m.Stats.Grants++
		} else {
			m.Stats.Denials++
		}
		payload, _ := json.Marshal(granted)
		return m.comm.Send(src, comm.Tag(utils.WriteGrant), payload)

	case utils.WriteRelease:
		if m.holder != src {
			return fmt.Errorf("%w: WRITE-RELEASE from rank %d, token held by %d", ErrProtocol, src, m.holder)
		}
		m.holder = noHolder

	case utils.Exit:
		if id, busy := m.running[src]; busy {
			return fmt.Errorf("%w: EXIT from rank %d still running task %d", ErrProtocol, src, id)
		}
		m.Stats.Closed++

	default:
		return fmt.Errorf("%w: %v from rank %d", ErrProtocol, kind, src)
	}
	return nil
}

// Dispatch runs tasks over the group: the coordinator rank serves the
// queue while every other rank works. A group of one runs the tasks
// inline, in order.
func Dispatch(c comm.Communicator, coordinator int, tasks []utils.Task, handle worker.Handler) (Stats, error) {
	if c.Size() == 1 {
		return runInline(tasks, handle)
	}
	if c.Rank() != coordinator {
		_, err := worker.Run(c, coordinator, nil, handle)
		return Stats{}, err
	}

	stats, err := NewCoordinator(c, tasks).Serve()
	if err == nil {
		log.Printf("--> %d tasks completed by %d workers (%d write grants, %d denials)",
			stats.Completed, stats.Closed, stats.Grants, stats.Denials)
	}
	return stats, err
}

func runInline(tasks []utils.Task, handle worker.Handler) (Stats, error) {
	var stats Stats
	arb := worker.NewInlineArbiter()

	for _, task := range tasks {
		stats.Assigned++
		if err := handle(task, arb); err != nil {
			return stats, fmt.Errorf("task %d (%s): %w", task.ID, task.File, err)
		}
		if err := arb.Release(); err != nil {
			return stats, err
		}
		stats.Completed++
	}
	log.Printf("--> %d tasks completed inline", stats.Completed)
	return stats, nil
}

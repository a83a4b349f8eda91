package util

import (
	"fmt"

	"github.com/cxhernandez/clusterLP-MPI/comm"
)

// Coordinator is the rank that writes the outputs and serves the
// dispatcher.
const Coordinator = 0

// RunGroup forms the process group and runs fn on every rank it hosts.
// With rank < 0, the np ranks run in this process; otherwise this process
// is the given rank of a group of len(peers) processes. A rank whose fn
// fails aborts the whole group.
func RunGroup(np, rank int, peers []string, fn func(c comm.Communicator) error) error {
	if rank < 0 {
		return comm.RunLocal(np, fn)
	}
	if len(peers) == 0 {
		return fmt.Errorf("rank %d needs the addresses of its peers", rank)
	}

	c, err := comm.ServeRPC(rank, peers)
	if err != nil {
		return err
	}
	defer c.Close()

	// a peer that never comes up aborts the group instead of stalling it
	if err = c.Connect(); err != nil {
		return err
	}
	if err = fn(c); err != nil {
		c.Abort(err)
		return err
	}
	// no rank stops serving while a peer may still send to it
	return comm.Barrier(c)
}

// Package comm forms a fixed group of processes (ranks) that cooperate
// purely by exchanging messages: point-to-point sends with (source, tag)
// matching on the receiving side, and collectives built on top of them.
//
// Messages from one sender to one receiver are delivered in the order
// they were sent. Nothing is guaranteed about the interleaving of
// messages coming from different senders.
package comm

import (
	"errors"
	"fmt"
)

// Tag labels a message so the receiver can match on it.
type Tag int

const (
	// AnySource matches a message from any rank.
	AnySource = -1
	// AnyTag matches any application tag. Tags reserved for collectives
	// are never matched by AnyTag.
	AnyTag Tag = -1
)

// tags at or above reservedTag belong to the collectives
const reservedTag Tag = 1 << 20

const (
	tagBcast Tag = reservedTag + iota
	tagGather
)

// ErrAborted is returned by every operation of a group after one of its
// ranks called Abort.
var ErrAborted = errors.New("comm: process group aborted")

// Message is the unit of delivery.
type Message struct {
	Source  int
	Tag     Tag
	Payload []byte
}

// Communicator is one rank's handle on its process group.
type Communicator interface {
	// Rank is the identity of this process inside the group, in [0, Size).
	Rank() int
	// Size is the number of processes in the group.
	Size() int
	// Send delivers payload to dest. It returns once the message is queued
	// at the destination.
	Send(dest int, tag Tag, payload []byte) error
	// Recv blocks until a message matching source and tag arrives.
	Recv(source int, tag Tag) (Message, error)
	// Abort tears the whole group down so no rank stays blocked on a
	// message that will never come.
	Abort(err error)
}

func checkRank(rank, size int) error {
	if rank < 0 || rank >= size {
		return fmt.Errorf("comm: rank %d out of range [0, %d)", rank, size)
	}
	return nil
}

func abortError(rank int, err error) error {
	return fmt.Errorf("%w: rank %d: %v", ErrAborted, rank, err)
}

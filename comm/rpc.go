package comm

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/rpc"
	"sync"
	"time"
)

const (
	networkProtocol = "tcp"
	deliverService  = "Postman.Deliver"
	abortService    = "Postman.Abort"
	dialAttempts    = 50                     // peers may come up after us
	dialDelay       = 200 * time.Millisecond // pause between two dial attempts
)

// Postman is the RPC service every rank publishes to receive messages.
type Postman struct {
	box  *mailbox
	rank int
}

// Deliver queues a JSON-marshalled Message in the rank's mailbox.
func (p *Postman) Deliver(payload []byte, ack *bool) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("message unmarshalling: %w", err)
	}
	if err := p.box.put(msg); err != nil {
		return err
	}
	*ack = true
	return nil
}

// Abort is called by a peer that gave up; every pending and future
// operation of this rank fails with ErrAborted.
func (p *Postman) Abort(reason string, ack *bool) error {
	log.Printf("--> rank %d: group aborted by peer: %s", p.rank, reason)
	p.box.close(fmt.Errorf("%w: %s", ErrAborted, reason))
	*ack = true
	return nil
}

// RPC is a rank of a group whose processes talk over TCP with net/rpc.
// peers[i] is the address rank i listens on.
type RPC struct {
	// DialAttempts and DialDelay bound how long a peer may take to come up.
	DialAttempts int
	DialDelay    time.Duration

	rank     int
	peers    []string
	box      *mailbox
	listener net.Listener

	mu      sync.Mutex
	clients []*rpc.Client
}

// ServeRPC listens on peers[rank] and publishes the rank's Postman.
func ServeRPC(rank int, peers []string) (*RPC, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}
	listener, err := net.Listen(networkProtocol, peers[rank])
	if err != nil {
		return nil, fmt.Errorf("listener creation: %w", err)
	}
	return NewRPC(rank, peers, listener)
}

// NewRPC publishes the rank's Postman on an existing listener.
func NewRPC(rank int, peers []string, listener net.Listener) (*RPC, error) {
	if err := checkRank(rank, len(peers)); err != nil {
		return nil, err
	}

	r := &RPC{
		DialAttempts: dialAttempts,
		DialDelay:    dialDelay,
		rank:         rank,
		peers:        peers,
		box:          newMailbox(),
		listener:     listener,
		clients:      make([]*rpc.Client, len(peers)),
	}

	server := rpc.NewServer()
	err := server.RegisterName("Postman", &Postman{box: r.box, rank: rank})
	if err != nil {
		return nil, fmt.Errorf("service register: %w", err)
	}
	go server.Accept(listener)

	return r, nil
}

func (r *RPC) Rank() int { return r.rank }
func (r *RPC) Size() int { return len(r.peers) }

func (r *RPC) Send(dest int, tag Tag, payload []byte) error {
	if err := checkRank(dest, r.Size()); err != nil {
		return err
	}
	msg := Message{Source: r.rank, Tag: tag, Payload: payload}
	if dest == r.rank {
		return r.box.put(msg)
	}

	cli, err := r.client(dest)
	if err != nil {
		return err
	}
	args, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("message marshalling: %w", err)
	}

	// synchronous: the next send to dest starts after this one is queued
	var ack bool
	if err = cli.Call(deliverService, args, &ack); err != nil {
		return fmt.Errorf("deliver to rank %d: %w", dest, err)
	}
	return nil
}

func (r *RPC) Recv(source int, tag Tag) (Message, error) {
	if source != AnySource {
		if err := checkRank(source, r.Size()); err != nil {
			return Message{}, err
		}
	}
	return r.box.take(source, tag)
}

// Abort notifies every reachable peer, then fails the local mailbox.
func (r *RPC) Abort(err error) {
	reason := abortError(r.rank, err)
	for dest := range r.peers {
		if dest == r.rank {
			continue
		}
		cli, dialErr := r.client(dest)
		if dialErr != nil {
			continue
		}
		var ack bool
		_ = cli.Call(abortService, reason.Error(), &ack)
	}
	r.box.close(reason)
}

// Connect dials every peer, then waits for the whole group. A rank that
// cannot reach some peer aborts the ones it reaches, so no rank is left
// waiting on a process that never joined.
func (r *RPC) Connect() error {
	for dest := range r.peers {
		if dest == r.rank {
			continue
		}
		if _, err := r.client(dest); err != nil {
			r.Abort(err)
			return err
		}
	}
	return Barrier(r)
}

// Close stops serving and drops the peer connections.
func (r *RPC) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cli := range r.clients {
		if cli != nil {
			cli.Close()
			r.clients[i] = nil
		}
	}
	return r.listener.Close()
}

// used to avoid dialling a peer every time a message is sent
func (r *RPC) client(dest int) (*rpc.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clients[dest] != nil {
		return r.clients[dest], nil
	}

	var err error
	for attempt := 0; attempt < r.DialAttempts; attempt++ {
		var cli *rpc.Client
		cli, err = rpc.Dial(networkProtocol, r.peers[dest])
		if err == nil {
			r.clients[dest] = cli
			return cli, nil
		}
		time.Sleep(r.DialDelay)
	}
	return nil, fmt.Errorf("rank %d dialling: %w", dest, err)
}

package comm

import (
	"encoding/json"
	"fmt"
)

// Bcast sends payload from root to every rank. Every rank gets the root's
// payload back; non-root ranks ignore their own argument.
func Bcast(c Communicator, root int, payload []byte) ([]byte, error) {
	if err := checkRank(root, c.Size()); err != nil {
		return nil, err
	}

	if c.Rank() != root {
		msg, err := c.Recv(root, tagBcast)
		if err != nil {
			return nil, err
		}
		return msg.Payload, nil
	}

	for dest := 0; dest < c.Size(); dest++ {
		if dest == root {
			continue
		}
		if err := c.Send(dest, tagBcast, payload); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// Gather collects one payload per rank on root, indexed by rank. Other
// ranks get nil.
func Gather(c Communicator, root int, payload []byte) ([][]byte, error) {
	if err := checkRank(root, c.Size()); err != nil {
		return nil, err
	}

	if c.Rank() != root {
		return nil, c.Send(root, tagGather, payload)
	}

	parts := make([][]byte, c.Size())
	parts[root] = payload
	for src := 0; src < c.Size(); src++ {
		if src == root {
			continue
		}
		msg, err := c.Recv(src, tagGather)
		if err != nil {
			return nil, err
		}
		parts[src] = msg.Payload
	}
	return parts, nil
}

// Allgather gives every rank the payloads of all ranks, indexed by rank.
func Allgather(c Communicator, payload []byte) ([][]byte, error) {
	parts, err := Gather(c, 0, payload)
	if err != nil {
		return nil, err
	}

	var packed []byte
	if c.Rank() == 0 {
		if packed, err = json.Marshal(parts); err != nil {
			return nil, fmt.Errorf("allgather marshalling: %w", err)
		}
	}
	if packed, err = Bcast(c, 0, packed); err != nil {
		return nil, err
	}
	if err = json.Unmarshal(packed, &parts); err != nil {
		return nil, fmt.Errorf("allgather unmarshalling: %w", err)
	}
	return parts, nil
}

// Barrier returns once every rank has entered it.
func Barrier(c Communicator) error {
	_, err := Allgather(c, nil)
	return err
}

// GatherJSON marshals v on every rank and unmarshals the contributions on
// root into a slice indexed by rank. Other ranks get nil.
func GatherJSON[T any](c Communicator, root int, v T) ([]T, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("gather marshalling: %w", err)
	}
	parts, err := Gather(c, root, payload)
	if err != nil || parts == nil {
		return nil, err
	}
	return decodeAll[T](parts)
}

// AllgatherJSON is GatherJSON delivered to every rank.
func AllgatherJSON[T any](c Communicator, v T) ([]T, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("allgather marshalling: %w", err)
	}
	parts, err := Allgather(c, payload)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](parts)
}

func decodeAll[T any](parts [][]byte) ([]T, error) {
	out := make([]T, len(parts))
	for i, p := range parts {
		if err := json.Unmarshal(p, &out[i]); err != nil {
			return nil, fmt.Errorf("rank %d contribution unmarshalling: %w", i, err)
		}
	}
	return out, nil
}

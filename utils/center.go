package utils

// Center : a frame chosen as representative by the k-centers selection
// --> identity of the chosen frame
// --> position in the selection order (0 for the first center)
// --> farthest distance observed when it was chosen
type Center struct {
	Identity
	Ordinal  int
	Distance float64
}

type Centers []Center

// Owned filters the centers down to the ones held by rank, keeping the selection order
func (c Centers) Owned(rank int) Centers {
	var owned Centers

	for _, center := range c {
		if center.Rank == rank {
			owned = append(owned, center)
		}
	}

	return owned
}

// Identities returns the identities of the centers in selection order
func (c Centers) Identities() []Identity {
	ids := make([]Identity, len(c))
	for i, center := range c {
		ids[i] = center.Identity
	}
	return ids
}

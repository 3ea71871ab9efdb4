package world

// EvictionPolicy picks the slot to reuse when the cache is full. It is only
// called with every slot allocated.
type EvictionPolicy interface {
	Victim(slots []TerrainChunk, focus Focus) int
}

// FarthestFirst evicts chunks the frame does not want before ones it does,
// then the one whose centre is farthest from the focus. Equal distances go to
// the least recently used, then the oldest allocation.
type FarthestFirst struct{}

func (FarthestFirst) Victim(slots []TerrainChunk, focus Focus) int {
	best := -1
	var bestWanted bool
	var bestDist float32
	for i := range slots {
		s := &slots[i]
		if !s.Allocated {
			continue
		}
		_, wanted := focus.Wanted[s.Coord]
		dist := Center(s.Coord).Sub(focus.Position).LenSqr()
		if best < 0 {
			best, bestWanted, bestDist = i, wanted, dist
			continue
		}
		switch {
		case wanted != bestWanted:
			if !wanted {
				best, bestWanted, bestDist = i, wanted, dist
			}
		case dist != bestDist:
			if dist > bestDist {
				best, bestWanted, bestDist = i, wanted, dist
			}
		case s.LastUsed != slots[best].LastUsed:
			if s.LastUsed < slots[best].LastUsed {
				best, bestWanted, bestDist = i, wanted, dist
			}
		case s.Sequence < slots[best].Sequence:
			best, bestWanted, bestDist = i, wanted, dist
		}
	}
	return best
}

// OldestFirst evicts in allocation order.
type OldestFirst struct{}

func (OldestFirst) Victim(slots []TerrainChunk, _ Focus) int {
	best := -1
	for i := range slots {
		if !slots[i].Allocated {
			continue
		}
		if best < 0 || slots[i].Sequence < slots[best].Sequence {
			best = i
		}
	}
	return best
}

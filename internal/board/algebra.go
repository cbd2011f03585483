package board

// Pure record-set operations. None of these perform I/O or persist; the
// caller owns externalization and saving.

// Upsert removes any record already holding the rank and appends a new one
// with the given content. Ordering is derived at render time, so append
// position does not matter.
func (b *Board) Upsert(rank string, c Content) *Player {
	b.Remove(rank)
	p := &Player{Rank: rank, Content: c}
	b.Players = append(b.Players, p)
	return p
}

// Remove filters out the record at rank. Removing an absent rank is a no-op.
func (b *Board) Remove(rank string) bool {
	for i, p := range b.Players {
		if p.Rank == rank {
			b.Players = append(b.Players[:i], b.Players[i+1:]...)
			return true
		}
	}
	return false
}

// Exchange swaps the content of two occupied ranks. Rank and message binding
// stay anchored to position. Nothing is touched unless both ranks exist.
func (b *Board) Exchange(rankA, rankB string) error {
	pa := b.Find(rankA)
	pb := b.Find(rankB)
	if pa == nil || pb == nil {
		return ErrRankNotFound
	}
	pa.Content, pb.Content = pb.Content, pa.Content
	return nil
}

// Move relocates the content at src to the occupied rank dst, cascading the
// content between them one slot toward the vacated position. Rank and
// message bindings never move. Moving a rank onto itself is a no-op.
func (b *Board) Move(src, dst string) error {
	players := b.Sorted()
	si, di := -1, -1
	for i, p := range players {
		if p.Rank == src {
			si = i
		}
		if p.Rank == dst {
			di = i
		}
	}
	if si < 0 || di < 0 {
		return ErrRankNotFound
	}
	if si == di {
		return nil
	}

	saved := players[si].Content
	if si > di {
		// moving up: shift content downward through the gap
		for i := si; i > di; i-- {
			players[i].Content = players[i-1].Content
		}
	} else {
		// moving down: shift content upward through the gap
		for i := si; i < di; i++ {
			players[i].Content = players[i+1].Content
		}
	}
	players[di].Content = saved
	return nil
}

package board

import (
	"fmt"
	"testing"
)

func seedBoard(ranks ...int) *Board {
	b := New()
	for _, r := range ranks {
		b.Upsert(fmt.Sprintf("%d", r), Content{
			Username:    fmt.Sprintf("user%d", r),
			MentionID:   fmt.Sprintf("10%d", r),
			DisplayName: fmt.Sprintf("Player %d", r),
			Stage:       StageLegend,
			ProfileID:   fmt.Sprintf("rbx%d", r),
			Country:     "Vietnam",
			AvatarURL:   fmt.Sprintf("https://cdn/avatar%d.png", r),
		})
		b.Find(fmt.Sprintf("%d", r)).MsgID = fmt.Sprintf("msg%d", r)
	}
	return b
}

func TestUpsertKeepsRanksDistinct(t *testing.T) {
	b := New()
	for _, r := range []string{"3", "1", "2", "1", "3", "1"} {
		b.Upsert(r, Content{Username: "u" + r})
	}
	seen := map[string]bool{}
	for _, p := range b.Players {
		if seen[p.Rank] {
			t.Fatalf("duplicate rank %s", p.Rank)
		}
		seen[p.Rank] = true
	}
	if len(b.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(b.Players))
	}
}

func TestUpsertSupersedesAllFields(t *testing.T) {
	b := New()
	b.Upsert("1", Content{Username: "old", Country: "Korea", ProfileID: "111", AvatarURL: "a"})
	b.Find("1").MsgID = "keepme-not"
	b.Upsert("1", Content{Username: "new"})
	p := b.Find("1")
	if p.Username != "new" {
		t.Fatalf("username not replaced: %q", p.Username)
	}
	if p.Country != "" || p.ProfileID != "" || p.AvatarURL != "" {
		t.Fatalf("old fields carried over: %+v", p.Content)
	}
	if p.MsgID != "" {
		t.Fatalf("stale message binding survived upsert: %q", p.MsgID)
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	b := seedBoard(1, 2)
	if b.Remove("9") {
		t.Fatalf("expected false for absent rank")
	}
	if len(b.Players) != 2 {
		t.Fatalf("players mutated: %d", len(b.Players))
	}
	if !b.Remove("2") {
		t.Fatalf("expected removal of rank 2")
	}
	if b.Find("2") != nil {
		t.Fatalf("rank 2 still present")
	}
}

func TestExchangeIsInvolution(t *testing.T) {
	b := seedBoard(1, 2, 3)
	before1, before2 := b.Find("1").Content, b.Find("2").Content
	if err := b.Exchange("1", "2"); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if b.Find("1").Content != before2 || b.Find("2").Content != before1 {
		t.Fatalf("content did not swap")
	}
	if b.Find("1").MsgID != "msg1" || b.Find("2").MsgID != "msg2" {
		t.Fatalf("message bindings moved")
	}
	if err := b.Exchange("1", "2"); err != nil {
		t.Fatalf("Exchange#2: %v", err)
	}
	if b.Find("1").Content != before1 || b.Find("2").Content != before2 {
		t.Fatalf("double exchange did not restore original content")
	}
}

func TestExchangeMissingRankHasNoPartialEffect(t *testing.T) {
	b := seedBoard(1, 2)
	before := b.Find("1").Content
	if err := b.Exchange("1", "7"); err != ErrRankNotFound {
		t.Fatalf("expected ErrRankNotFound, got %v", err)
	}
	if b.Find("1").Content != before {
		t.Fatalf("partial exchange occurred")
	}
}

func TestMoveSameRankIsNoop(t *testing.T) {
	b := seedBoard(1, 2, 3)
	before := b.Find("2").Content
	if err := b.Move("2", "2"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if b.Find("2").Content != before {
		t.Fatalf("self-move changed content")
	}
}

func TestMoveUpRotatesContent(t *testing.T) {
	b := seedBoard(1, 2, 3, 4)
	c1, c2, c3, c4 := b.Find("1").Content, b.Find("2").Content, b.Find("3").Content, b.Find("4").Content
	if err := b.Move("3", "1"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if b.Find("1").Content != c3 {
		t.Fatalf("rank 1 should hold old rank-3 content")
	}
	if b.Find("2").Content != c1 {
		t.Fatalf("rank 2 should hold old rank-1 content")
	}
	if b.Find("3").Content != c2 {
		t.Fatalf("rank 3 should hold old rank-2 content")
	}
	if b.Find("4").Content != c4 {
		t.Fatalf("rank 4 should be untouched")
	}
	for _, r := range []string{"1", "2", "3", "4"} {
		if b.Find(r).MsgID != "msg"+r {
			t.Fatalf("message binding moved for rank %s", r)
		}
	}
}

func TestMoveDownRotatesContent(t *testing.T) {
	b := seedBoard(1, 2, 3, 4)
	c1, c2, c3 := b.Find("1").Content, b.Find("2").Content, b.Find("3").Content
	if err := b.Move("1", "3"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if b.Find("1").Content != c2 {
		t.Fatalf("rank 1 should hold old rank-2 content")
	}
	if b.Find("2").Content != c3 {
		t.Fatalf("rank 2 should hold old rank-3 content")
	}
	if b.Find("3").Content != c1 {
		t.Fatalf("rank 3 should hold old rank-1 content")
	}
}

func TestMoveToUnoccupiedRankFails(t *testing.T) {
	b := seedBoard(1, 2, 4)
	if err := b.Move("1", "3"); err != ErrRankNotFound {
		t.Fatalf("expected ErrRankNotFound for unoccupied destination, got %v", err)
	}
}

func TestMoveWithSparseRanks(t *testing.T) {
	// ranks need not be contiguous; the cascade runs over the sorted sequence
	b := seedBoard(2, 5, 9)
	c2, c5, c9 := b.Find("2").Content, b.Find("5").Content, b.Find("9").Content
	if err := b.Move("9", "2"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if b.Find("2").Content != c9 || b.Find("5").Content != c2 || b.Find("9").Content != c5 {
		t.Fatalf("sparse rotation wrong: %+v", b.Sorted())
	}
}

func TestCanonicalRank(t *testing.T) {
	if r, err := CanonicalRank(" 07 "); err != nil || r != "7" {
		t.Fatalf("CanonicalRank(07) = %q, %v", r, err)
	}
	for _, bad := range []string{"0", "-3", "x", ""} {
		if _, err := CanonicalRank(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSortedOrdersNumerically(t *testing.T) {
	b := New()
	for _, r := range []string{"10", "2", "1"} {
		b.Upsert(r, Content{})
	}
	got := b.Sorted()
	want := []string{"1", "2", "10"}
	for i, p := range got {
		if p.Rank != want[i] {
			t.Fatalf("order %d: got %s want %s", i, p.Rank, want[i])
		}
	}
}

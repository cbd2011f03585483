package avatarapi

import "testing"

func TestNormalizeIDsCanonicalizesButKeysByOriginal(t *testing.T) {
	ids, byTarget := normalizeIDs([]string{"042", " 7 ", "abc", "", "-3", "7"})
	if len(ids) != 2 {
		t.Fatalf("expected 2 query ids, got %v", ids)
	}
	if ids[0] != "42" || ids[1] != "7" {
		t.Fatalf("query ids not canonical decimal: %v", ids)
	}
	// Responses come back keyed by numeric target id; the reverse map must
	// recover the caller's spelling.
	if byTarget[42] != "042" {
		t.Fatalf("leading-zero spelling lost: %q", byTarget[42])
	}
	if byTarget[7] != "7" {
		t.Fatalf("unexpected mapping for 7: %q", byTarget[7])
	}
}

func TestNormalizeIDsEmpty(t *testing.T) {
	ids, byTarget := normalizeIDs(nil)
	if len(ids) != 0 || len(byTarget) != 0 {
		t.Fatalf("expected empty results, got %v %v", ids, byTarget)
	}
}

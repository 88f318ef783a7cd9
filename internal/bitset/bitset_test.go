package bitset

import "testing"

func TestSetClearTest(t *testing.T) {
	s := New(0)
	s.Set(3)
	s.Set(130)
	if !s.Test(3) || !s.Test(130) {
		t.Fatalf("expected bits 3 and 130 to be set")
	}
	if s.Test(4) {
		t.Fatalf("bit 4 should not be set")
	}
	s.Clear(3)
	if s.Test(3) {
		t.Fatalf("bit 3 should be cleared")
	}
}

func TestOrAndXor(t *testing.T) {
	a := New(0)
	a.Set(1)
	a.Set(5)
	b := New(0)
	b.Set(5)
	b.Set(9)

	or := a.Clone()
	or.Or(b)
	for _, bit := range []int{1, 5, 9} {
		if !or.Test(bit) {
			t.Fatalf("Or: expected bit %d set", bit)
		}
	}

	and := a.Clone()
	and.And(b)
	if and.Count() != 1 || !and.Test(5) {
		t.Fatalf("And: expected only bit 5 set, got %v", and.Slice())
	}

	xor := a.Clone()
	xor.Xor(b)
	if xor.Test(5) || !xor.Test(1) || !xor.Test(9) {
		t.Fatalf("Xor: unexpected result %v", xor.Slice())
	}
}

func TestIsSubsetOfOverlaps(t *testing.T) {
	small := New(0)
	small.Set(2)
	big := New(0)
	big.Set(2)
	big.Set(7)

	if !small.IsSubsetOf(big) {
		t.Fatalf("small should be a subset of big")
	}
	if big.IsSubsetOf(small) {
		t.Fatalf("big should not be a subset of small")
	}
	if !small.Overlaps(big) {
		t.Fatalf("small and big should overlap")
	}

	disjoint := New(0)
	disjoint.Set(99)
	if small.Overlaps(disjoint) {
		t.Fatalf("small and disjoint must not overlap")
	}
}

func TestRangeAscending(t *testing.T) {
	s := New(0)
	for _, bit := range []int{64, 1, 200, 3} {
		s.Set(bit)
	}
	var seen []int
	s.Range(func(i int) bool {
		seen = append(seen, i)
		return true
	})
	want := []int{1, 3, 64, 200}
	if len(seen) != len(want) {
		t.Fatalf("got %v want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v want %v", seen, want)
		}
	}
}

func TestEqualAndGrowth(t *testing.T) {
	a := New(0)
	a.Set(300)
	b := New(0)
	b.Set(300)
	if !a.Equal(b) {
		t.Fatalf("expected equal sets after growth past one word")
	}
	if a.Len()%64 != 0 {
		t.Fatalf("capacity must round up to a whole word, got %d", a.Len())
	}
}

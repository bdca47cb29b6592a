package gmath

import "testing"

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, alignment, want int
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 4, 8},
		{17, 16, 32},
		{255, 256, 256},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.n, tt.alignment); got != tt.want {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.n, tt.alignment, got, tt.want)
		}
	}
	if got := AlignUp(uint64(13), 4); got != 16 {
		t.Errorf("AlignUp(uint64(13), 4) = %d, want 16", got)
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		n, d, want uint32
	}{
		{0, 8, 0},
		{1, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{1024, 256, 4},
		{1025, 256, 5},
	}
	for _, tt := range tests {
		if got := CeilDiv(tt.n, tt.d); got != tt.want {
			t.Errorf("CeilDiv(%d, %d) = %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}

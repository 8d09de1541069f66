package tokens

import "testing"

func TestCount(t *testing.T) {
	if got := Count(""); got != 0 {
		t.Fatalf("Count(\"\") = %d, want 0", got)
	}
	short := Count("hello")
	long := Count("hello there, this is a considerably longer sentence about streaming")
	if short <= 0 {
		t.Fatalf("Count(hello) = %d, want > 0", short)
	}
	if long <= short {
		t.Fatalf("longer text should count more tokens: %d <= %d", long, short)
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld", 3},
	}
	for _, tt := range tests {
		if got := Estimate(tt.in); got != tt.want {
			t.Errorf("Estimate(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

package models

import "testing"

func TestHashIDStableAndNonNegative(t *testing.T) {
	inputs := []string{"", "a", "abc", "7d9f0a4c-3b7e-4f2a-9c1d-000000000001", "同一个世界"}
	for _, in := range inputs {
		first := HashID(in)
		if first < 0 {
			t.Errorf("HashID(%q) = %d, want non-negative", in, first)
		}
		if again := HashID(in); again != first {
			t.Errorf("HashID(%q) unstable: %d then %d", in, first, again)
		}
	}
	if HashID("a") == HashID("b") {
		t.Error("distinct short inputs should not collide")
	}
}

func TestRegionFromFlag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"\U0001F1FA\U0001F1F8", "US"},
		{"\U0001F1E9\U0001F1EA", "DE"},
		{"JP", "JP"}, // already an ISO code
		{"", ""},
	}
	for _, tt := range tests {
		if got := RegionFromFlag(tt.in); got != tt.want {
			t.Errorf("RegionFromFlag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

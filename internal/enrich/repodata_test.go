package enrich

import "testing"

func TestEstimateContributors(t *testing.T) {
	weeks := func(n, val int) []int {
		out := make([]int, 52)
		for i := 0; i < n; i++ {
			out[i] = val
		}
		return out
	}

	cases := []struct {
		name      string
		all       []int
		owner     []int
		want      int
		wantKnown bool
	}{
		{"no data", nil, nil, 0, false},
		{"no activity", make([]int, 52), make([]int, 52), 0, false},
		{"solo owner", weeks(10, 3), weeks(10, 3), 1, true},
		{"small team", weeks(10, 3), weeks(10, 2), 3, true},
		{"mid team", weeks(20, 3), weeks(20, 1), 5, true},
		{"large team", weeks(30, 5), weeks(30, 1), 7, true},
		{"very large team", weeks(45, 5), weeks(45, 1), 10, true},
		{"mismatched owner series", weeks(30, 2), nil, 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, known := estimateContributors(tc.all, tc.owner).Get()
			if known != tc.wantKnown {
				t.Fatalf("known = %v, want %v", known, tc.wantKnown)
			}
			if known && got != tc.want {
				t.Errorf("contributors = %d, want %d", got, tc.want)
			}
		})
	}
}

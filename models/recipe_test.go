package models

import "testing"

func TestPathExists(t *testing.T) {
	edges := map[int][]int{
		1: {2, 3},
		2: {4},
		3: {4},
		4: {5},
	}

	cases := []struct {
		name string
		from int
		to   int
		want bool
	}{
		{"direct edge", 1, 2, true},
		{"transitive", 1, 5, true},
		{"diamond converges", 1, 4, true},
		{"no reverse path", 5, 1, false},
		{"self", 3, 3, true},
		{"unknown node", 9, 1, false},
		{"disconnected", 2, 3, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := pathExists(edges, c.from, c.to); got != c.want {
				t.Errorf("pathExists(%d, %d) = %v, want %v", c.from, c.to, got, c.want)
			}
		})
	}
}

func TestPathExistsHandlesCyclicGraph(t *testing.T) {
	edges := map[int][]int{
		1: {2},
		2: {3},
		3: {1},
	}
	if !pathExists(edges, 2, 1) {
		t.Error("expected a path through the cycle")
	}
	if pathExists(edges, 1, 4) {
		t.Error("expected no path to a node outside the cycle")
	}
}

package sim

import "testing"

func TestOverlaps(t *testing.T) {
	car := box{X: 100, Y: 100, Width: 40, Height: 70}

	cases := []struct {
		name  string
		other box
		want  bool
	}{
		{"full overlap", box{X: 110, Y: 110, Width: 10, Height: 10}, true},
		{"corner overlap", box{X: 139, Y: 169, Width: 24, Height: 24}, true},
		{"left of car", box{X: 50, Y: 110, Width: 24, Height: 24}, false},
		{"above car", box{X: 110, Y: 10, Width: 24, Height: 24}, false},
		{"shared right edge", box{X: 140, Y: 110, Width: 24, Height: 24}, false},
		{"shared bottom edge", box{X: 110, Y: 170, Width: 24, Height: 24}, false},
		{"zero area at car corner", box{X: 100, Y: 100, Width: 0, Height: 0}, false},
	}

	for _, tc := range cases {
		if got := overlaps(car, tc.other); got != tc.want {
			t.Fatalf("%s: overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

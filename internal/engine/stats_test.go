package engine

import "testing"

func TestStatsForClass(t *testing.T) {
	cases := []struct {
		class Class
		want  Stats
	}{
		{ClassWarrior, Stats{8, 5, 3}},
		{ClassRogue, Stats{4, 9, 5}},
		{ClassWizard, Stats{2, 4, 10}},
		{ClassBard, Stats{3, 6, 7}},
		{ClassPaladin, Stats{7, 4, 5}},
		{ClassRanger, Stats{5, 8, 4}},
		{ClassCleric, Stats{5, 4, 6}},
		// Unknown classes get the warrior baseline on purpose.
		{"necromancer", Stats{8, 5, 3}},
		{"", Stats{8, 5, 3}},
	}

	for _, tc := range cases {
		if got := StatsForClass(tc.class); got != tc.want {
			t.Errorf("StatsForClass(%q) = %+v, want %+v", tc.class, got, tc.want)
		}
	}
}

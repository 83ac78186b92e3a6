package timing

import (
	"testing"
	"time"
)

func TestApportion(t *testing.T) {
	tests := []struct {
		name    string
		total   time.Duration
		weights []int64
		want    []time.Duration
	}{
		{"equal", 9, []int64{1, 1, 1}, []time.Duration{3, 3, 3}},
		{"remainder to largest fraction", 10, []int64{1, 1, 1}, []time.Duration{4, 3, 3}},
		{"proportional", 100, []int64{1, 3}, []time.Duration{25, 75}},
		{"zero weights split evenly", 4, []int64{0, 0}, []time.Duration{2, 2}},
		{"zero total", 0, []int64{1, 2}, []time.Duration{0, 0}},
	}
	for _, tt := range tests {
		got := Apportion(tt.total, tt.weights)
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: Apportion = %v want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}

func TestApportionLargeValuesDoNotOverflow(t *testing.T) {
	total := 10 * time.Hour
	weights := []int64{int64(3 * time.Hour), int64(7 * time.Hour)}
	got := Apportion(total, weights)
	if got[0]+got[1] != total || got[0] != 3*time.Hour {
		t.Fatalf("Apportion = %v", got)
	}
}

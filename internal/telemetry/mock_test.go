package telemetry

import "testing"

func TestGeneratorStaysInBounds(t *testing.T) {
	g := NewGenerator(42, 100)
	for i := 0; i < 1000; i++ {
		s := g.Next()
		if s.SpeedKph < 0 {
			t.Fatalf("tick %d: negative speed %v", i, s.SpeedKph)
		}
		if s.Brake < 0 || s.Brake > 1 {
			t.Fatalf("tick %d: brake out of [0,1]: %v", i, s.Brake)
		}
		if s.Gear < 1 || s.Gear > 6 {
			t.Fatalf("tick %d: gear out of [1,6]: %v", i, s.Gear)
		}
	}
}

func TestGearForBoundaries(t *testing.T) {
	cases := []struct {
		speed float64
		want  int
	}{
		{0, 1}, {29, 1}, {30, 2}, {59, 2}, {60, 3}, {150, 5}, {250, 6},
	}
	for _, c := range cases {
		if got := gearFor(c.speed); got != c.want {
			t.Errorf("gearFor(%v) = %d, want %d", c.speed, got, c.want)
		}
	}
}

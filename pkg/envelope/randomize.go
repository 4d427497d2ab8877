package envelope

import "math/rand"

// Randomize assigns random targets and durations to every stage. The first
// stage always peaks at 1 and the last always falls to 0. Durations favour
// short values: lerp(1, 200, r^2).
func Randomize(d *Definition, rng *rand.Rand) {
	d.update(func(s *Snapshot) {
		last := len(s.Stages) - 1
		for i := range s.Stages {
			switch i {
			case 0:
				s.Stages[i].Target = 1
			case last:
				s.Stages[i].Target = 0
			default:
				s.Stages[i].Target = rng.Float64()
			}
			r := rng.Float64()
			s.Stages[i].Duration = lerp(1, 200, r*r)
		}
	})
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

package modelseg

import (
	"math/rand"
	"testing"
)

func benchModelSeg(b *testing.B, w, h, models, perPixel int) {
	b.Helper()
	rng := rand.New(rand.NewSource(42))
	type cost struct {
		model uint32
		cost  float64
	}
	costs := make([][]cost, w*h)
	for i := range costs {
		for k := 0; k < perPixel; k++ {
			costs[i] = append(costs[i], cost{uint32(rng.Intn(models)), rng.Float64()})
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := New(DefaultConfig())
		s.SetSize(w, h, models)
		s.SetParams(0.3, 1, 10)
		for p, cs := range costs {
			for _, c := range cs {
				s.AddCost(p%w, p/w, c.model, c.cost)
			}
		}
		if err := s.Run(nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModelSeg_64_8(b *testing.B)     { benchModelSeg(b, 64, 48, 8, 3) }
func BenchmarkModelSeg_128_64(b *testing.B)   { benchModelSeg(b, 128, 96, 64, 4) }
func BenchmarkModelSeg_128_1000(b *testing.B) { benchModelSeg(b, 128, 96, 1000, 4) }

package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSameSeedSameStream(t *testing.T) {
	a, b := New(7), New(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float(), b.Float())
	}
	assert.Equal(t, a.Sample(50, 10), b.Sample(50, 10))
	assert.Equal(t, a.Gamma(1.3, 20000), b.Gamma(1.3, 20000))
	assert.Equal(t, int64(7), a.Seed())
}

func TestSample_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 200).Draw(t, "n")
		k := rapid.IntRange(-5, 250).Draw(t, "k")
		src := New(rapid.Int64().Draw(t, "seed"))

		got := src.Sample(n, k)

		want := k
		if want > n {
			want = n
		}
		if want < 0 {
			want = 0
		}
		if len(got) != want {
			t.Fatalf("expected %d indices, got %d", want, len(got))
		}
		seen := make(map[int]bool, len(got))
		for _, idx := range got {
			if idx < 0 || idx >= n {
				t.Fatalf("index %d out of range [0, %d)", idx, n)
			}
			if seen[idx] {
				t.Fatalf("index %d drawn twice", idx)
			}
			seen[idx] = true
		}
	})
}

func TestGamma_Mean(t *testing.T) {
	src := New(1)
	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := src.Gamma(1.3, 20000)
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InEpsilon(t, 26000, sum/n, 0.05)
}

func TestGamma_SmallShape(t *testing.T) {
	src := New(3)
	for i := 0; i < 1000; i++ {
		assert.GreaterOrEqual(t, src.Gamma(0.5, 2), 0.0)
	}
	assert.Equal(t, 0.0, src.Gamma(0, 1))
}

func TestExponential_Mean(t *testing.T) {
	src := New(2)
	const n = 20000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += src.Exponential(404)
	}
	assert.InEpsilon(t, 404, sum/n, 0.05)
}

func TestDistributionsShareTheStream(t *testing.T) {
	draw := func(seed int64) []float64 {
		src := New(seed)
		var out []float64
		for i := 0; i < 20; i++ {
			out = append(out, src.Gamma(1.3, 20000), src.Float(), src.Exponential(10))
		}
		return out
	}
	assert.Equal(t, draw(11), draw(11))
	assert.NotEqual(t, draw(11), draw(12))

	a, b := New(5), New(5)
	a.Gamma(1.3, 1)
	assert.NotEqual(t, a.Float(), b.Float(), "a gamma draw advances the shared stream")
}

func TestExponential_NonPositiveMean(t *testing.T) {
	src := New(4)
	assert.Equal(t, 0.0, src.Exponential(0))
	assert.Equal(t, 0.0, src.Exponential(-3))
}

package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_gf256_tables(t *testing.T) {
	// alpha^0 = 1 and the exponents cycle with period 255.
	assert.EqualValues(t, 1, gf_alpha_to[0])
	assert.EqualValues(t, GF_A0, gf_index_of[0])

	for i := 1; i < 255; i++ {
		assert.NotEqualValues(t, 1, gf_alpha_to[i], "alpha order must be 255, repeated at %d", i)
	}
}

func Test_gf256_field_axioms(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var a = rapid.Byte().Draw(t, "a")
		var b = rapid.Byte().Draw(t, "b")
		var c = rapid.Byte().Draw(t, "c")

		assert.Equal(t, gf_mul(a, b), gf_mul(b, a), "multiplication commutes")
		assert.Equal(t, gf_mul(a, gf_mul(b, c)), gf_mul(gf_mul(a, b), c), "multiplication associates")
		assert.Equal(t, a, gf_mul(a, 1), "1 is the multiplicative identity")
		assert.Equal(t, a^b, gf_add(a, b), "addition is XOR")

		// Distributivity.
		assert.Equal(t, gf_mul(a, b^c), gf_mul(a, b)^gf_mul(a, c))

		if a != 0 {
			assert.EqualValues(t, 1, gf_mul(a, gf_div(1, a)), "a * a^-1 = 1")
		}
	})
}

func Test_gf256_pow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var a = rapid.Byte().Filter(func(b byte) bool { return b != 0 }).Draw(t, "a")
		var n = rapid.IntRange(0, 5).Draw(t, "n")

		var expected byte = 1
		for i := 0; i < n; i++ {
			expected = gf_mul(expected, a)
		}
		assert.Equal(t, expected, gf_pow(a, n))
	})

	// Negative exponents of alpha wrap around.
	assert.Equal(t, gf_alpha_to[254], gf_alpha_pow(-1))
	assert.Equal(t, gf_alpha_to[0], gf_alpha_pow(-255))
}

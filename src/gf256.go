package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	GF(2^8) arithmetic shared by the Reed-Solomon codecs.
 *
 * Description:	Log / antilog tables for the field generated by the
 *		primitive polynomial x^8 + x^4 + x^3 + x^2 + 1 (0x11d).
 *		Both FX.25 and IL2P use this same field; only the first
 *		root of the code generator polynomial differs.
 *
 *		The tables are built once at startup and never written
 *		again, so they can be read from any goroutine without
 *		locking.
 *
 *--------------------------------------------------------------*/

const GF_POLY = 0x11d
const GF_NN = 255 // Number of non-zero field elements.
const GF_A0 = 255 // index_of[0], the "log of zero" sentinel.

var gf_alpha_to [256]byte // Antilog: alpha_to[i] = alpha**i.  alpha_to[255] = 0.
var gf_index_of [256]byte // Log: index_of[alpha**i] = i.  index_of[0] = GF_A0.

func init() {
	gf_index_of[0] = GF_A0
	gf_alpha_to[GF_NN] = 0

	var sr = 1
	for i := 0; i < GF_NN; i++ {
		gf_index_of[sr] = byte(i)
		gf_alpha_to[i] = byte(sr)
		sr <<= 1
		if sr&0x100 != 0 {
			sr ^= GF_POLY
		}
		sr &= GF_NN
	}

	// 0x11d is primitive so the multiplicative order of alpha is 255.
	Assert(sr == 1)
}

func gf_add(a byte, b byte) byte {
	return a ^ b
}

func gf_mul(a byte, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gf_alpha_to[(int(gf_index_of[a])+int(gf_index_of[b]))%GF_NN]
}

func gf_div(a byte, b byte) byte {
	if a == 0 || b == 0 {
		// Division by zero yields zero rather than a panic; callers
		// that care check for it first.
		return 0
	}
	var d = int(gf_index_of[a]) - int(gf_index_of[b])
	if d < 0 {
		d += GF_NN
	}
	return gf_alpha_to[d]
}

func gf_pow(a byte, n int) byte {
	if a == 0 {
		return 0
	}
	if n == 0 {
		return 1
	}
	n %= GF_NN
	if n < 0 {
		n += GF_NN
	}
	return gf_alpha_to[(int(gf_index_of[a])*n)%GF_NN]
}

// gf_alpha_pow returns alpha**e for any integer exponent, negative included.
func gf_alpha_pow(e int) byte {
	e %= GF_NN
	if e < 0 {
		e += GF_NN
	}
	return gf_alpha_to[e]
}

package packetprotocols

// SPDX-FileCopyrightText: 2002 Phil Karn, KA9Q

/*-------------------------------------------------------------
 *
 * Purpose:	Reed-Solomon codec over GF(2^8) for any (255,k) code.
 *
 * Description:	The encoder follows Phil Karn's systematic encoder:
 *		polynomial division of the data by the code generator
 *		polynomial, with the generator kept in index (log) form
 *		for speed.  The decoder is the standard algebraic chain:
 *		syndromes, Berlekamp-Massey, Chien search, Forney.
 *
 *		FX.25 codes use first root alpha^1, IL2P uses alpha^0.
 *		Both are handled by the fcr parameter.
 *
 *		Shortened codes are handled by the callers placing the
 *		data at a fixed offset inside a full 255 byte block and
 *		zero filling the rest.
 *
 *		A codec control block holds only immutable tables after
 *		construction; the encoder and decoder keep their working
 *		storage local to each call.
 *
 *--------------------------------------------------------------*/

import (
	"slices"
)

type rs_t struct {
	nn      int    // Block size, always 255 for 8 bit symbols.
	fcr     int    // First root of the generator polynomial, index form.
	nroots  int    // Generator polynomial degree = number of parity symbols.
	genpoly []byte // Generator polynomial in index form.
}

func modnn(rs *rs_t, x int) int {
	return x % rs.nn
}

/* Initialize a Reed-Solomon codec
 *   fcr = first root of RS code generator polynomial, index form
 *   nroots = RS code generator polynomial degree (number of roots)
 */

func init_rs_char(fcr int, nroots int) *rs_t {
	if fcr < 0 || fcr >= 256 {
		return nil
	}
	if nroots < 1 || nroots >= 255 {
		return nil // Can't have more roots than symbol values!
	}

	var rs = &rs_t{
		nn:      GF_NN,
		fcr:     fcr,
		nroots:  nroots,
		genpoly: make([]byte, nroots+1),
	}

	// Form RS code generator polynomial from its roots
	// alpha^fcr thru alpha^(fcr+nroots-1).

	rs.genpoly[0] = 1
	for i, root := 0, fcr; i < nroots; i, root = i+1, root+1 {
		rs.genpoly[i+1] = 1

		// Multiply genpoly by (x + alpha^root).
		for j := i; j > 0; j-- {
			if rs.genpoly[j] != 0 {
				rs.genpoly[j] = rs.genpoly[j-1] ^ gf_alpha_to[modnn(rs, int(gf_index_of[rs.genpoly[j]])+root)]
			} else {
				rs.genpoly[j] = rs.genpoly[j-1]
			}
		}
		// genpoly[0] can never be zero
		rs.genpoly[0] = gf_alpha_to[modnn(rs, int(gf_index_of[rs.genpoly[0]])+root)]
	}

	// Convert genpoly to index form for quicker encoding.
	for i := 0; i <= nroots; i++ {
		rs.genpoly[i] = gf_index_of[rs.genpoly[i]]
	}

	return rs
}

/*-------------------------------------------------------------
 *
 * Name:	encode_rs_char
 *
 * Purpose:	Compute parity symbols for a block of data.
 *
 * Inputs:	rs	- Codec control block.
 *		data	- Exactly nn - nroots data bytes.  For shortened
 *			  codes the leading bytes are zero.
 *
 * Outputs:	bb	- nroots parity bytes.
 *
 *--------------------------------------------------------------*/

func encode_rs_char(rs *rs_t, data []byte, bb []byte) {
	var nroots = rs.nroots
	var dataLen = rs.nn - nroots

	// Clear out the FEC data area
	for k := range bb {
		bb[k] = 0
	}

	for i := 0; i < dataLen; i++ {
		var feedback = gf_index_of[data[i]^bb[0]]

		if feedback != GF_A0 { // feedback term is non-zero
			for j := 1; j < nroots; j++ {
				bb[j] ^= gf_alpha_to[modnn(rs, int(feedback)+int(rs.genpoly[nroots-j]))]
			}
		}

		// Shift
		copy(bb, bb[1:])

		if feedback != GF_A0 {
			bb[nroots-1] = gf_alpha_to[modnn(rs, int(feedback)+int(rs.genpoly[0]))]
		} else {
			bb[nroots-1] = 0
		}
	}
}

/*-------------------------------------------------------------
 *
 * Name:	decode_rs_char
 *
 * Purpose:	Correct errors in a received block, in place.
 *
 * Inputs:	rs	- Codec control block.
 *		data	- Full nn byte block: data part followed by
 *			  parity part.  Corrections are applied in place.
 *		no_eras	- Number of known erasures.  Erasure decoding is
 *			  not implemented; must be 0.
 *
 * Outputs:	derrlocs - Byte positions that were corrected.
 *			  Must have room for nroots entries.
 *
 * Returns:	Number of symbols corrected, 0 if the block was already
 *		a valid codeword, or -1 if the errors are uncorrectable.
 *		On -1 the data is returned unmodified - no partial fix.
 *
 *--------------------------------------------------------------*/

func decode_rs_char(rs *rs_t, data []byte, derrlocs []int, no_eras int) int {
	Assert(no_eras == 0)
	Assert(len(data) == rs.nn)

	var nroots = rs.nroots
	var t = nroots / 2

	// Syndromes S_i = R(alpha^(fcr+i)), by Horner's rule.
	// The first received byte is the highest order coefficient.

	var syn = make([]byte, nroots)
	var nonzero = false
	for i := 0; i < nroots; i++ {
		var root = gf_alpha_pow(rs.fcr + i)
		var s byte = 0
		for j := 0; j < rs.nn; j++ {
			s = gf_mul(s, root) ^ data[j]
		}
		syn[i] = s
		if s != 0 {
			nonzero = true
		}
	}

	if !nonzero {
		return 0
	}

	// Berlekamp-Massey: find the error locator polynomial Lambda(x)
	// of minimal degree L consistent with the syndromes.

	var lambda = make([]byte, nroots+1)
	var prev = make([]byte, nroots+1)
	lambda[0] = 1
	prev[0] = 1
	var L = 0
	var m = 1
	var b byte = 1

	for n := 0; n < nroots; n++ {
		var d = syn[n]
		for i := 1; i <= L; i++ {
			d ^= gf_mul(lambda[i], syn[n-i])
		}

		if d == 0 {
			m++
			continue
		}

		var saved = slices.Clone(lambda)
		var coef = gf_div(d, b)
		for i := 0; i+m <= nroots; i++ {
			if prev[i] != 0 {
				lambda[i+m] ^= gf_mul(coef, prev[i])
			}
		}

		if 2*L <= n {
			L = n + 1 - L
			prev = saved
			b = d
			m = 1
		} else {
			m++
		}
	}

	if L == 0 || L > t {
		// Nonzero syndromes with no locator, or more errors than
		// the code can correct.
		return -1
	}

	// Chien search: Lambda(alpha^-i) == 0 places an error at byte
	// position nn-1-i.

	var roots = make([]int, 0, L)
	for i := 0; i < rs.nn; i++ {
		var q byte = 1 // lambda[0]
		for j := 1; j <= L; j++ {
			if lambda[j] != 0 {
				q ^= gf_mul(lambda[j], gf_alpha_pow(-i*j))
			}
		}
		if q == 0 {
			roots = append(roots, i)
		}
	}

	if len(roots) != L {
		// deg(lambda) != number of roots: uncorrectable.
		return -1
	}

	// Error evaluator Omega(x) = S(x) * Lambda(x) mod x^nroots.

	var omega = make([]byte, nroots)
	for i := 0; i < nroots; i++ {
		var o = syn[i]
		for j := 1; j <= i && j <= L; j++ {
			o ^= gf_mul(lambda[j], syn[i-j])
		}
		omega[i] = o
	}

	// Forney: error value at locator X is
	//   X^(1-fcr) * Omega(X^-1) / Lambda'(X^-1)
	// where the formal derivative keeps only odd powers of Lambda.

	var values = make([]byte, L)
	for k, i := range roots {
		var num byte = 0
		for j := 0; j < nroots; j++ {
			if omega[j] != 0 {
				num ^= gf_mul(omega[j], gf_alpha_pow(-i*j))
			}
		}

		var den byte = 0
		for j := 1; j <= L; j += 2 {
			if lambda[j] != 0 {
				den ^= gf_mul(lambda[j], gf_alpha_pow(-i*(j-1)))
			}
		}

		if den == 0 {
			return -1
		}

		var val = gf_div(num, den)
		if rs.fcr == 0 {
			val = gf_mul(val, gf_alpha_pow(i)) // X^(1-fcr) with fcr = 0
		}
		values[k] = val
	}

	// All positions and values known; apply the fix.

	for k, i := range roots {
		var pos = rs.nn - 1 - i
		data[pos] ^= values[k]
		derrlocs[k] = pos
	}

	return L
}

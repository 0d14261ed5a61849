package bitblast

import (
	"math/big"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// bits is a bitvector encoding, least significant bit first.
type bits []z.Lit

func constBits(c *logic.C, v *big.Int, w int) bits {
	out := make(bits, w)
	for i := range out {
		if v.Bit(i) == 1 {
			out[i] = c.T
		} else {
			out[i] = c.F
		}
	}
	return out
}

func zeros(c *logic.C, w int) bits {
	out := make(bits, w)
	for i := range out {
		out[i] = c.F
	}
	return out
}

func fresh(c *logic.C, w int) bits {
	out := make(bits, w)
	for i := range out {
		out[i] = c.Lit()
	}
	return out
}

func not(a bits) bits {
	out := make(bits, len(a))
	for i, m := range a {
		out[i] = m.Not()
	}
	return out
}

func zip(a, b bits, f func(x, y z.Lit) z.Lit) bits {
	out := make(bits, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}

func ands(c *logic.C, ms ...z.Lit) z.Lit {
	if len(ms) == 0 {
		return c.T
	}
	return c.Ands(ms...)
}

func ors(c *logic.C, ms ...z.Lit) z.Lit {
	if len(ms) == 0 {
		return c.F
	}
	return c.Ors(ms...)
}

func eq(c *logic.C, a, b bits) z.Lit {
	ms := make([]z.Lit, len(a))
	for i := range a {
		ms[i] = c.Xor(a[i], b[i]).Not()
	}
	return ands(c, ms...)
}

func ite(c *logic.C, cond z.Lit, a, b bits) bits {
	out := make(bits, len(a))
	for i := range a {
		out[i] = c.Choice(cond, a[i], b[i])
	}
	return out
}

// add returns a+b+cin and the carry out.
func add(c *logic.C, a, b bits, cin z.Lit) (bits, z.Lit) {
	out := make(bits, len(a))
	carry := cin
	for i := range a {
		axb := c.Xor(a[i], b[i])
		out[i] = c.Xor(axb, carry)
		carry = c.Or(c.And(a[i], b[i]), c.And(carry, axb))
	}
	return out, carry
}

func sum(c *logic.C, a, b bits) bits {
	out, _ := add(c, a, b, c.F)
	return out
}

// sub returns a-b. The carry out is set iff a >= b unsigned.
func sub(c *logic.C, a, b bits) (bits, z.Lit) {
	return add(c, a, not(b), c.T)
}

func neg(c *logic.C, a bits) bits {
	out, _ := add(c, not(a), zeros(c, len(a)), c.T)
	return out
}

func mul(c *logic.C, a, b bits) bits {
	w := len(a)
	acc := zeros(c, w)
	for i := 0; i < w; i++ {
		pp := make(bits, w)
		for j := range pp {
			if j < i {
				pp[j] = c.F
			} else {
				pp[j] = c.And(a[j-i], b[i])
			}
		}
		acc = sum(c, acc, pp)
	}
	return acc
}

// udivrem is a restoring divider. Division by zero yields all ones and
// leaves the dividend as remainder.
func udivrem(c *logic.C, a, b bits) (q, r bits) {
	w := len(a)
	q = make(bits, w)
	r = zeros(c, w)
	wide := append(append(bits{}, b...), c.F)
	for i := w - 1; i >= 0; i-- {
		shifted := append(bits{a[i]}, r...)
		diff, ge := sub(c, shifted, wide)
		q[i] = ge
		r = ite(c, ge, diff[:w], shifted[:w])
	}
	return q, r
}

func ult(c *logic.C, a, b bits) z.Lit {
	lt := c.F
	for i := range a {
		here := c.And(a[i].Not(), b[i])
		same := c.Xor(a[i], b[i]).Not()
		lt = c.Or(here, c.And(same, lt))
	}
	return lt
}

func flipSign(a bits) bits {
	out := append(bits{}, a...)
	out[len(out)-1] = out[len(out)-1].Not()
	return out
}

func slt(c *logic.C, a, b bits) z.Lit {
	return ult(c, flipSign(a), flipSign(b))
}

func msb(a bits) z.Lit {
	return a[len(a)-1]
}

func abs(c *logic.C, a bits) bits {
	return ite(c, msb(a), neg(c, a), a)
}

func sdiv(c *logic.C, a, b bits) bits {
	q, _ := udivrem(c, abs(c, a), abs(c, b))
	return ite(c, c.Xor(msb(a), msb(b)), neg(c, q), q)
}

func srem(c *logic.C, a, b bits) bits {
	_, r := udivrem(c, abs(c, a), abs(c, b))
	return ite(c, msb(a), neg(c, r), r)
}

func smod(c *logic.C, a, b bits) bits {
	_, u := udivrem(c, abs(c, a), abs(c, b))
	isZero := eq(c, u, zeros(c, len(u)))
	sa, sb := msb(a), msb(b)
	res := ite(c, c.And(sa, sb), neg(c, u), u)
	res = ite(c, c.And(sa, sb.Not()), sum(c, neg(c, u), b), res)
	res = ite(c, c.And(sa.Not(), sb), sum(c, u, b), res)
	return ite(c, isZero, u, res)
}

// shift is a barrel shifter. Amounts of at least the width shift in fill
// everywhere.
func shift(c *logic.C, a, amt bits, left bool, fill z.Lit) bits {
	w := len(a)
	res := a
	over := c.F
	for k := range amt {
		if k >= 31 || 1<<k >= w {
			over = c.Or(over, amt[k])
			continue
		}
		s := 1 << k
		next := make(bits, w)
		for i := range next {
			moved := fill
			if left && i-s >= 0 {
				moved = res[i-s]
			} else if !left && i+s < w {
				moved = res[i+s]
			}
			next[i] = c.Choice(amt[k], moved, res[i])
		}
		res = next
	}
	out := make(bits, w)
	for i := range out {
		out[i] = c.Choice(over, fill, res[i])
	}
	return out
}

func rotate(a bits, n int, left bool) bits {
	w := len(a)
	n %= w
	out := make(bits, w)
	for j := range a {
		if left {
			out[(j+n)%w] = a[j]
		} else {
			out[j] = a[(j+n)%w]
		}
	}
	return out
}

package field

import (
	"github.com/zkbtc/groth16script/builder"
	"github.com/zkbtc/groth16script/internal/bnum"
	"github.com/zkbtc/groth16script/script"
	"github.com/zkbtc/groth16script/stackdesc"
)

// Ops is the flag set every general field operation takes. The flags
// are orthogonal: TakeModulo appends the reduction pattern to the raw
// result, PositiveModulo upgrades that reduction to the canonical
// [0, q) representative, CheckConstant prepends the bottom-constant
// assertion, CleanConstant removes the modulus from its slot once the
// operation is done, and IsConstantReused leaves a spare copy of the
// modulus directly below the result for the next operation in a chain
// to consume without a fresh deep Pick.
type Ops struct {
	TakeModulo       bool
	PositiveModulo   bool
	CheckConstant    bool
	CleanConstant    bool
	IsConstantReused bool
}

// DefaultOps is the flag set the simple entry points (Add, Sub, Mul,
// Square, Negate) compile with: reduce to the canonical representative,
// trust the constant, leave it in place, no spare copy.
var DefaultOps = Ops{TakeModulo: true, PositiveModulo: true}

// opsEmitter accumulates one flagged operation's fragment while
// tracking how many extra items sit above the entry layout.
type opsEmitter struct {
	f   *Fq
	out *script.Script
	// modulusDepth is the modulus's depth at fragment entry; off the
	// number of items pushed (net) since then.
	modulusDepth int
	off          int
}

func (e *opsEmitter) pick(depth int) {
	e.out.AddScript(builder.Pick(depth+e.off, 1))
	e.off++
}

func (e *opsEmitter) op(opcode byte) {
	e.out.Add(script.NewStatement(opcode))
}

// binop emits a two-operand opcode, which nets one item off the stack.
func (e *opsEmitter) binop(opcode byte) {
	e.out.Add(script.NewStatement(opcode))
	e.off--
}

// finish applies the Ops flags to the raw result on top of the stack
// and returns the completed fragment. On exit the result sits on top of
// the entry layout (below a spare modulus copy when IsConstantReused is
// set), and the modulus slot itself is gone when CleanConstant is set.
func (e *opsEmitter) finish(ops Ops) *script.Script {
	if ops.TakeModulo {
		e.pick(e.modulusDepth)
		if ops.PositiveModulo {
			e.op(script.OpTUCK)
			e.off++
			e.binop(script.OpMOD)
			e.op(script.OpOVER)
			e.off++
			e.binop(script.OpADD)
			e.pick(e.modulusDepth)
			e.binop(script.OpMOD)
			if ops.IsConstantReused {
				// expose the spare copy above the result
				e.op(script.OpSWAP)
			} else {
				e.op(script.OpNIP)
				e.off--
			}
		} else {
			if ops.IsConstantReused {
				e.op(script.OpTUCK)
				e.off++
				e.binop(script.OpMOD)
				e.op(script.OpSWAP)
			} else {
				e.binop(script.OpMOD)
			}
		}
	}
	if ops.CleanConstant {
		e.out.AddScript(builder.Roll(e.modulusDepth+e.off, 1))
		e.op(script.OpDROP)
		e.off--
	}
	return e.out
}

func (f *Fq) newEmitter(modulusDepth int, ops Ops) *opsEmitter {
	e := &opsEmitter{f: f, out: script.NewScript(), modulusDepth: modulusDepth}
	if ops.CheckConstant {
		e.out.AddScript(builder.VerifyBottomConstant(modulusDepth, f.Modulus.Bytes()))
	}
	return e
}

// AlgebraicSum emits the signed sum of the given terms (each term's
// Negate flag selects its sign), reading every operand with Pick so the
// originals stay in place, and leaves the (optionally reduced) sum on
// top. modulusDepth is the modulus's depth at fragment entry.
func (f *Fq) AlgebraicSum(terms []stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	e := f.newEmitter(modulusDepth, ops)
	for i, t := range terms {
		e.pick(t.Position)
		if t.Negate {
			e.op(script.OpNEGATE)
		}
		if i > 0 {
			e.binop(script.OpADD)
		}
	}
	return e.finish(ops)
}

// AddOps is AlgebraicSum for two positive terms.
func (f *Fq) AddOps(x, y stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	return f.AlgebraicSum([]stackdesc.Number{x.SetNegate(false), y.SetNegate(false)}, modulusDepth, ops)
}

// SubOps is AlgebraicSum of x and -y.
func (f *Fq) SubOps(x, y stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	return f.AlgebraicSum([]stackdesc.Number{x.SetNegate(false), y.SetNegate(true)}, modulusDepth, ops)
}

// MulOps emits x*y with the usual flag handling; a Negate flag on
// exactly one operand negates the product.
func (f *Fq) MulOps(x, y stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	e := f.newEmitter(modulusDepth, ops)
	e.pick(x.Position)
	e.pick(y.Position)
	e.binop(script.OpMUL)
	if x.Negate != y.Negate {
		e.op(script.OpNEGATE)
	}
	return e.finish(ops)
}

// SquareOps emits x^2; the Negate flag is irrelevant under squaring.
func (f *Fq) SquareOps(x stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	e := f.newEmitter(modulusDepth, ops)
	e.pick(x.Position)
	e.op(script.OpDUP)
	e.off++
	e.binop(script.OpMUL)
	return e.finish(ops)
}

// NegateOps emits q - x (mapping 0 to 0 under PositiveModulo).
func (f *Fq) NegateOps(x stackdesc.Number, modulusDepth int, ops Ops) *script.Script {
	e := f.newEmitter(modulusDepth, ops)
	e.pick(x.Position)
	if !x.Negate {
		e.op(script.OpNEGATE)
	}
	return e.finish(ops)
}

// ScalarMulOps emits x multiplied by the compile-time constant k.
func (f *Fq) ScalarMulOps(x stackdesc.Number, k *bnum.Int, modulusDepth int, ops Ops) *script.Script {
	e := f.newEmitter(modulusDepth, ops)
	e.pick(x.Position)
	e.out.Add(script.NewDataStatement(k.Bytes()))
	e.off++
	e.binop(script.OpMUL)
	if x.Negate {
		e.op(script.OpNEGATE)
	}
	return e.finish(ops)
}

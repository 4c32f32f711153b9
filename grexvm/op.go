package grexvm

type OpCode uint32

const (
	OpLoadConst OpCode = iota + 8
	OpLoadVar
	OpDefVar
	OpSetVar
	OpPop
	OpJump
	OpJumpFalse
	OpCall
	OpCallKw
	OpReturn
	OpEnterScope
	OpLeaveScope
	OpMakeClosure
	OpMakeList
	OpMakeMap
	OpMakeTuple
	OpGetIndex
	OpSetIndex
	OpGetSlice
	OpSetSlice
	OpGetIter
	OpNextIter
	OpGetAttr
	OpSetAttr
	OpListAppend
	OpContains
	OpUnpack
	OpDup
	OpDup2
	OpSwap
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpNeg
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpBitLsh
	OpBitRsh

	// tracing ops, emitted only inside traced function bodies
	OpStmtReach
	OpStmtDone
	OpObserve
	OpFunEnter
)

func (o OpCode) With(arg int) OpCode {
	return o | (OpCode(arg) << 8)
}

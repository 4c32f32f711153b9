package grexpy

import (
	"fmt"

	"github.com/reusee/grex/grexvm"
	"go.starlark.net/syntax"
)

type compiler struct {
	name       string
	code       []grexvm.OpCode
	lines      []int32
	constants  []any
	constMap   map[any]int
	loops      []*loopContext
	directives map[int]*Directive

	// traced enables statement and observation instrumentation for the
	// function body being compiled.
	traced  bool
	curLine int32
}

type loopContext struct {
	continueIP int
	breakIPs   []int
}

func newCompiler(name string, directives map[int]*Directive) *compiler {
	return &compiler{
		name:       name,
		constMap:   make(map[any]int),
		directives: directives,
	}
}

func (c *compiler) toFunction() *grexvm.Function {
	return &grexvm.Function{
		Name:      c.name,
		Code:      c.code,
		Lines:     c.lines,
		Constants: c.constants,
	}
}

func (c *compiler) addConst(val any) int {
	if isComparable(val) {
		if idx, ok := c.constMap[val]; ok {
			return idx
		}
	}
	idx := len(c.constants)
	c.constants = append(c.constants, val)
	if isComparable(val) {
		c.constMap[val] = idx
	}
	return idx
}

func isComparable(v any) bool {
	switch v.(type) {
	case int, int64, float64, string, bool, nil:
		return true
	}
	return false
}

func (c *compiler) emit(op grexvm.OpCode) {
	c.code = append(c.code, op)
	c.lines = append(c.lines, c.curLine)
}

func (c *compiler) setLine(pos syntax.Position) {
	if pos.Line > 0 {
		c.curLine = pos.Line
	}
}

func (c *compiler) currentIP() int {
	return len(c.code)
}

func (c *compiler) patchJump(ip int, target int) {
	offset := target - ip - 1
	op := c.code[ip] & 0xff
	c.code[ip] = op.With(offset)
}

// observe reports the value on top of the stack when tracing.
func (c *compiler) observe() {
	if c.traced {
		c.emit(grexvm.OpObserve)
	}
}

func (c *compiler) stmtReach(line int32) {
	if c.traced {
		c.emit(grexvm.OpStmtReach.With(int(line)))
	}
}

func (c *compiler) stmtDone(line int32) {
	if c.traced {
		c.emit(grexvm.OpStmtDone.With(int(line)))
	}
}

func (c *compiler) compileStmts(stmts []syntax.Stmt) error {
	for _, stmt := range stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStmt(stmt syntax.Stmt) error {
	start, _ := stmt.Span()
	c.setLine(start)
	line := c.curLine

	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		c.stmtReach(line)
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.emit(grexvm.OpPop)
		c.stmtDone(line)

	case *syntax.AssignStmt:
		c.stmtReach(line)
		if err := c.compileAssign(s); err != nil {
			return err
		}
		c.stmtDone(line)

	case *syntax.DefStmt:
		c.stmtReach(line)
		if err := c.compileDef(s); err != nil {
			return err
		}
		c.stmtDone(line)

	case *syntax.ReturnStmt:
		c.stmtReach(line)
		if s.Result != nil {
			if err := c.compileExpr(s.Result); err != nil {
				return err
			}
		} else {
			c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
		}
		c.emit(grexvm.OpReturn)

	case *syntax.IfStmt:
		return c.compileIf(s)

	case *syntax.WhileStmt:
		return c.compileWhile(s)

	case *syntax.ForStmt:
		return c.compileFor(s)

	case *syntax.BranchStmt:
		c.stmtReach(line)
		return c.compileBranch(s)

	case *syntax.LoadStmt:
		return fmt.Errorf("line %d: load is not allowed", line)

	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
	return nil
}

func (c *compiler) compileAssign(s *syntax.AssignStmt) error {
	if s.Op == syntax.EQ {
		return c.compileSimpleAssign(s.LHS, s.RHS)
	}
	return c.compileAugmentedAssign(s)
}

func (c *compiler) compileStore(lhs syntax.Expr) error {
	switch node := lhs.(type) {
	case *syntax.Ident:
		c.emit(grexvm.OpDefVar.With(c.addConst(node.Name)))
		return nil
	case *syntax.ParenExpr:
		return c.compileStore(node.X)
	case *syntax.ListExpr:
		c.emit(grexvm.OpUnpack.With(len(node.List)))
		for _, elem := range node.List {
			if err := c.compileStore(elem); err != nil {
				return err
			}
		}
		return nil
	case *syntax.TupleExpr:
		c.emit(grexvm.OpUnpack.With(len(node.List)))
		for _, elem := range node.List {
			if err := c.compileStore(elem); err != nil {
				return err
			}
		}
		return nil
	case *syntax.DotExpr:
		c.emit(grexvm.OpDefVar.With(c.addConst(".$tmp")))
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		c.emit(grexvm.OpLoadConst.With(c.addConst(node.Name.Name)))
		c.emit(grexvm.OpLoadVar.With(c.addConst(".$tmp")))
		c.emit(grexvm.OpSetAttr)
		return nil
	case *syntax.IndexExpr:
		c.emit(grexvm.OpDefVar.With(c.addConst(".$tmp")))
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileExpr(node.Y); err != nil {
			return err
		}
		c.emit(grexvm.OpLoadVar.With(c.addConst(".$tmp")))
		c.emit(grexvm.OpSetIndex)
		return nil
	case *syntax.SliceExpr:
		c.emit(grexvm.OpDefVar.With(c.addConst(".$tmp")))
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileSliceArgs(node); err != nil {
			return err
		}
		c.emit(grexvm.OpLoadVar.With(c.addConst(".$tmp")))
		c.emit(grexvm.OpSetSlice)
		return nil
	default:
		return fmt.Errorf("unsupported assignment target: %T", lhs)
	}
}

func (c *compiler) compileBranch(s *syntax.BranchStmt) error {
	if s.Token == syntax.PASS {
		return nil
	}

	if len(c.loops) == 0 {
		return fmt.Errorf("%s outside loop", s.Token.String())
	}
	loop := c.loops[len(c.loops)-1]

	switch s.Token {
	case syntax.BREAK:
		loop.breakIPs = append(loop.breakIPs, c.currentIP())
		c.emit(grexvm.OpJump)
	case syntax.CONTINUE:
		ip := c.currentIP()
		c.emit(grexvm.OpJump)
		c.patchJump(ip, loop.continueIP)
	}
	return nil
}

func (c *compiler) compileExpr(expr syntax.Expr) error {
	switch e := expr.(type) {
	case *syntax.Literal:
		c.emit(grexvm.OpLoadConst.With(c.addConst(literalValue(e))))
	case *syntax.Ident:
		switch e.Name {
		case "None":
			c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
		case "True":
			c.emit(grexvm.OpLoadConst.With(c.addConst(true)))
		case "False":
			c.emit(grexvm.OpLoadConst.With(c.addConst(false)))
		default:
			c.emit(grexvm.OpLoadVar.With(c.addConst(e.Name)))
		}
	case *syntax.UnaryExpr:
		return c.compileUnaryExpr(e)
	case *syntax.BinaryExpr:
		return c.compileBinaryExpr(e)
	case *syntax.CallExpr:
		return c.compileCallExpr(e)
	case *syntax.ListExpr:
		return c.compileListExpr(e)
	case *syntax.DictExpr:
		return c.compileDictExpr(e)
	case *syntax.IndexExpr:
		return c.compileIndexExpr(e)
	case *syntax.TupleExpr:
		return c.compileTupleExpr(e)
	case *syntax.ParenExpr:
		return c.compileExpr(e.X)
	case *syntax.SliceExpr:
		return c.compileSliceExpr(e)
	case *syntax.DotExpr:
		return c.compileDotExpr(e)
	case *syntax.CondExpr:
		return c.compileCondExpr(e)
	case *syntax.LambdaExpr:
		return c.compileLambdaExpr(e)
	case *syntax.Comprehension:
		return c.compileComprehension(e)
	default:
		return fmt.Errorf("unsupported expression: %T", expr)
	}
	return nil
}

// literalValue widens parser literals to the interpreter's value model.
func literalValue(e *syntax.Literal) any {
	switch v := e.Value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return v
	case string:
		return v
	}
	return e.Value
}

func (c *compiler) compileIf(s *syntax.IfStmt) error {
	start, _ := s.Span()
	c.setLine(start)
	c.stmtReach(c.curLine)

	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	jumpFalseIP := c.currentIP()
	c.emit(grexvm.OpJumpFalse)

	if err := c.compileStmts(s.True); err != nil {
		return err
	}

	jumpEndIP := c.currentIP()
	c.emit(grexvm.OpJump)

	c.patchJump(jumpFalseIP, c.currentIP())

	if len(s.False) > 0 {
		if err := c.compileStmts(s.False); err != nil {
			return err
		}
	}

	c.patchJump(jumpEndIP, c.currentIP())
	return nil
}

func (c *compiler) compileWhile(s *syntax.WhileStmt) error {
	start, _ := s.Span()
	c.setLine(start)
	headerLine := c.curLine

	startIP := c.currentIP()
	c.stmtReach(headerLine)
	loop := &loopContext{
		continueIP: startIP,
	}
	c.loops = append(c.loops, loop)

	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}

	jumpExitIP := c.currentIP()
	c.emit(grexvm.OpJumpFalse)

	if err := c.compileStmts(s.Body); err != nil {
		return err
	}

	loopIP := c.currentIP()
	offset := startIP - (loopIP + 1)
	c.emit(grexvm.OpJump.With(offset))

	c.patchJump(jumpExitIP, c.currentIP())

	for _, ip := range loop.breakIPs {
		c.patchJump(ip, c.currentIP())
	}
	c.loops = c.loops[:len(c.loops)-1]

	return nil
}

func (c *compiler) compileFor(s *syntax.ForStmt) error {
	start, _ := s.Span()
	c.setLine(start)
	headerLine := c.curLine

	if err := c.compileExpr(s.X); err != nil {
		return err
	}
	c.emit(grexvm.OpGetIter)

	loopHeadIP := c.currentIP()
	c.stmtReach(headerLine)
	loop := &loopContext{
		continueIP: loopHeadIP,
	}
	c.loops = append(c.loops, loop)

	nextIterIP := c.currentIP()
	c.emit(grexvm.OpNextIter)

	if err := c.compileStore(s.Vars); err != nil {
		return err
	}

	if err := c.compileStmts(s.Body); err != nil {
		return err
	}

	jumpBackIP := c.currentIP()
	c.emit(grexvm.OpJump)
	c.patchJump(jumpBackIP, loopHeadIP)

	// breaks jump here and pop the iterator
	if len(loop.breakIPs) > 0 {
		breakIP := c.currentIP()
		c.emit(grexvm.OpPop)
		for _, ip := range loop.breakIPs {
			c.patchJump(ip, breakIP)
		}
	}

	endIP := c.currentIP()
	c.patchJump(nextIterIP, endIP)

	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

func (c *compiler) compileDef(s *syntax.DefStmt) error {
	defLine := int(s.Def.Line)

	sub := newCompiler(s.Name.Name, c.directives)
	sub.curLine = s.Def.Line

	if _, ok := c.directives[defLine]; ok {
		sub.traced = true
		sub.emit(grexvm.OpFunEnter)
	}

	if err := sub.compileStmts(s.Body); err != nil {
		return err
	}
	sub.emit(grexvm.OpLoadConst.With(sub.addConst(nil)))
	sub.emit(grexvm.OpReturn)

	fn := sub.toFunction()
	var err error
	var isVariadic bool
	var defaults []syntax.Expr
	fn.ParamNames, defaults, isVariadic, err = c.extractParamNames(s.Params)
	if err != nil {
		return err
	}
	fn.NumParams = len(fn.ParamNames)
	fn.NumDefaults = len(defaults)
	fn.Variadic = isVariadic
	fn.DefLine = defLine

	if d, ok := c.directives[defLine]; ok {
		fn.Traced = true
		fn.Watch = d.Watch
		fn.PeekAll = d.PeekAll
	}

	for _, d := range defaults {
		if err := c.compileExpr(d); err != nil {
			return err
		}
	}

	c.emit(grexvm.OpMakeClosure.With(c.addConst(fn)))
	c.emit(grexvm.OpDefVar.With(c.addConst(s.Name.Name)))

	return nil
}

func (c *compiler) extractParamNames(params []syntax.Expr) ([]string, []syntax.Expr, bool, error) {
	names := make([]string, 0, len(params))
	var defaults []syntax.Expr
	isVariadic := false
	seenDefault := false

	for _, p := range params {
		if isVariadic {
			return nil, nil, false, fmt.Errorf("variadic parameter must be last")
		}
		if id, ok := p.(*syntax.Ident); ok {
			if seenDefault {
				return nil, nil, false, fmt.Errorf("non-default argument follows default argument")
			}
			names = append(names, id.Name)
		} else if u, ok := p.(*syntax.UnaryExpr); ok && u.Op == syntax.STAR {
			if id, ok := u.X.(*syntax.Ident); ok {
				names = append(names, id.Name)
				isVariadic = true
			} else {
				return nil, nil, false, fmt.Errorf("variadic parameter must be identifier")
			}
		} else if bin, ok := p.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			if id, ok := bin.X.(*syntax.Ident); ok {
				names = append(names, id.Name)
				defaults = append(defaults, bin.Y)
				seenDefault = true
			} else {
				return nil, nil, false, fmt.Errorf("parameter name must be identifier")
			}
		} else {
			return nil, nil, false, fmt.Errorf("complex parameters not supported")
		}
	}
	return names, defaults, isVariadic, nil
}

func (c *compiler) compileSimpleAssign(lhs, rhs syntax.Expr) error {
	switch node := lhs.(type) {
	case *syntax.Ident, *syntax.ListExpr, *syntax.TupleExpr, *syntax.ParenExpr:
		if err := c.compileExpr(rhs); err != nil {
			return err
		}
		return c.compileStore(node)
	case *syntax.IndexExpr:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileExpr(node.Y); err != nil {
			return err
		}
		if err := c.compileExpr(rhs); err != nil {
			return err
		}
		c.emit(grexvm.OpSetIndex)
	case *syntax.SliceExpr:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileSliceArgs(node); err != nil {
			return err
		}
		if err := c.compileExpr(rhs); err != nil {
			return err
		}
		c.emit(grexvm.OpSetSlice)
	case *syntax.DotExpr:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		c.emit(grexvm.OpLoadConst.With(c.addConst(node.Name.Name)))
		if err := c.compileExpr(rhs); err != nil {
			return err
		}
		c.emit(grexvm.OpSetAttr)
	default:
		return fmt.Errorf("unsupported assignment target: %T", lhs)
	}
	return nil
}

func (c *compiler) compileAugmentedAssign(s *syntax.AssignStmt) error {
	var op grexvm.OpCode
	switch s.Op {
	case syntax.PLUS_EQ:
		op = grexvm.OpAdd
	case syntax.MINUS_EQ:
		op = grexvm.OpSub
	case syntax.STAR_EQ:
		op = grexvm.OpMul
	case syntax.SLASH_EQ:
		op = grexvm.OpDiv
	case syntax.SLASHSLASH_EQ:
		op = grexvm.OpFloorDiv
	case syntax.PERCENT_EQ:
		op = grexvm.OpMod
	case syntax.AMP_EQ:
		op = grexvm.OpBitAnd
	case syntax.PIPE_EQ:
		op = grexvm.OpBitOr
	case syntax.CIRCUMFLEX_EQ:
		op = grexvm.OpBitXor
	case syntax.LTLT_EQ:
		op = grexvm.OpBitLsh
	case syntax.GTGT_EQ:
		op = grexvm.OpBitRsh
	default:
		return fmt.Errorf("augmented assignment op %s not supported", s.Op)
	}

	switch lhs := s.LHS.(type) {
	case *syntax.Ident:
		c.emit(grexvm.OpLoadVar.With(c.addConst(lhs.Name)))
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		c.emit(op)
		c.observe()
		return c.compileStore(lhs)

	case *syntax.IndexExpr:
		if err := c.compileExpr(lhs.X); err != nil {
			return err
		}
		if err := c.compileExpr(lhs.Y); err != nil {
			return err
		}
		c.emit(grexvm.OpDup2)
		c.emit(grexvm.OpGetIndex)
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		c.emit(op)
		c.observe()
		c.emit(grexvm.OpSetIndex)

	case *syntax.DotExpr:
		if err := c.compileExpr(lhs.X); err != nil {
			return err
		}
		c.emit(grexvm.OpLoadConst.With(c.addConst(lhs.Name.Name)))
		c.emit(grexvm.OpDup2)
		c.emit(grexvm.OpGetAttr)
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		c.emit(op)
		c.observe()
		c.emit(grexvm.OpSetAttr)

	default:
		return fmt.Errorf("unsupported augmented assignment target: %T", s.LHS)
	}
	return nil
}

func (c *compiler) compileUnaryExpr(e *syntax.UnaryExpr) error {
	switch e.Op {
	case syntax.PLUS:
		return c.compileExpr(e.X)
	case syntax.MINUS:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(grexvm.OpNeg)
	case syntax.NOT:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(grexvm.OpNot)
	case syntax.TILDE:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(grexvm.OpBitNot)
	default:
		return fmt.Errorf("unsupported unary op: %v", e.Op)
	}
	return nil
}

func (c *compiler) compileBinaryExpr(e *syntax.BinaryExpr) error {
	if e.Op == syntax.AND {
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(grexvm.OpDup)
		jumpFalseIP := c.currentIP()
		c.emit(grexvm.OpJumpFalse)
		c.emit(grexvm.OpPop)
		if err := c.compileExpr(e.Y); err != nil {
			return err
		}
		c.patchJump(jumpFalseIP, c.currentIP())
		return nil
	}
	if e.Op == syntax.OR {
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(grexvm.OpDup)
		jumpFalseIP := c.currentIP()
		c.emit(grexvm.OpJumpFalse)

		jumpEndIP := c.currentIP()
		c.emit(grexvm.OpJump)

		c.patchJump(jumpFalseIP, c.currentIP())
		c.emit(grexvm.OpPop)
		if err := c.compileExpr(e.Y); err != nil {
			return err
		}

		c.patchJump(jumpEndIP, c.currentIP())
		return nil
	}

	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	if err := c.compileExpr(e.Y); err != nil {
		return err
	}
	switch e.Op {
	case syntax.PLUS:
		c.emit(grexvm.OpAdd)
	case syntax.MINUS:
		c.emit(grexvm.OpSub)
	case syntax.STAR:
		c.emit(grexvm.OpMul)
	case syntax.SLASH:
		c.emit(grexvm.OpDiv)
	case syntax.SLASHSLASH:
		c.emit(grexvm.OpFloorDiv)
	case syntax.PERCENT:
		c.emit(grexvm.OpMod)
	case syntax.EQL:
		c.emit(grexvm.OpEq)
	case syntax.NEQ:
		c.emit(grexvm.OpNe)
	case syntax.LT:
		c.emit(grexvm.OpLt)
	case syntax.LE:
		c.emit(grexvm.OpLe)
	case syntax.GT:
		c.emit(grexvm.OpGt)
	case syntax.GE:
		c.emit(grexvm.OpGe)
	case syntax.PIPE:
		c.emit(grexvm.OpBitOr)
	case syntax.AMP:
		c.emit(grexvm.OpBitAnd)
	case syntax.CIRCUMFLEX:
		c.emit(grexvm.OpBitXor)
	case syntax.LTLT:
		c.emit(grexvm.OpBitLsh)
	case syntax.GTGT:
		c.emit(grexvm.OpBitRsh)
	case syntax.IN:
		c.emit(grexvm.OpContains)
	case syntax.NOT_IN:
		c.emit(grexvm.OpContains)
		c.emit(grexvm.OpNot)
	case syntax.STARSTAR:
		c.emit(grexvm.OpPow)
	default:
		return fmt.Errorf("unsupported binary op: %v", e.Op)
	}
	c.observe()
	return nil
}

func (c *compiler) compileCallExpr(e *syntax.CallExpr) error {
	if err := c.compileExpr(e.Fn); err != nil {
		return err
	}

	isSimple := true
	for _, arg := range e.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			isSimple = false
			break
		}
		if u, ok := arg.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			isSimple = false
			break
		}
	}

	if isSimple {
		for _, arg := range e.Args {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emit(grexvm.OpCall.With(len(e.Args)))
		c.observe()
		return nil
	}

	// keyword or splat call: materialize a positional list and a
	// keyword dict, then OpCallKw
	hasListOnStack := false
	var pendingPos []syntax.Expr

	flushPos := func() error {
		if len(pendingPos) == 0 && hasListOnStack {
			return nil
		}
		for _, arg := range pendingPos {
			if err := c.compileExpr(arg); err != nil {
				return err
			}
		}
		c.emit(grexvm.OpMakeList.With(len(pendingPos)))
		if hasListOnStack {
			c.emit(grexvm.OpAdd)
		}
		hasListOnStack = true
		pendingPos = nil
		return nil
	}

	for _, arg := range e.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			continue
		}
		if u, ok := arg.(*syntax.UnaryExpr); ok && u.Op == syntax.STARSTAR {
			continue
		}

		if u, ok := arg.(*syntax.UnaryExpr); ok && u.Op == syntax.STAR {
			if err := flushPos(); err != nil {
				return err
			}
			if err := c.compileExpr(u.X); err != nil {
				return err
			}
			if hasListOnStack {
				c.emit(grexvm.OpAdd)
			} else {
				hasListOnStack = true
			}
		} else {
			pendingPos = append(pendingPos, arg)
		}
	}
	if err := flushPos(); err != nil {
		return err
	}
	if !hasListOnStack {
		c.emit(grexvm.OpMakeList.With(0))
	}

	hasMapOnStack := false
	var pendingKw []*syntax.BinaryExpr

	flushKw := func() error {
		if len(pendingKw) == 0 && hasMapOnStack {
			return nil
		}
		for _, kw := range pendingKw {
			id := kw.X.(*syntax.Ident)
			c.emit(grexvm.OpLoadConst.With(c.addConst(id.Name)))
			if err := c.compileExpr(kw.Y); err != nil {
				return err
			}
		}
		c.emit(grexvm.OpMakeMap.With(len(pendingKw)))
		if hasMapOnStack {
			c.emit(grexvm.OpBitOr)
		}
		hasMapOnStack = true
		pendingKw = nil
		return nil
	}

	for _, arg := range e.Args {
		if bin, ok := arg.(*syntax.BinaryExpr); ok && bin.Op == syntax.EQ {
			pendingKw = append(pendingKw, bin)
		} else if u, ok := arg.(*syntax.UnaryExpr); ok && u.Op == syntax.STARSTAR {
			if err := flushKw(); err != nil {
				return err
			}
			if err := c.compileExpr(u.X); err != nil {
				return err
			}
			if hasMapOnStack {
				c.emit(grexvm.OpBitOr)
			} else {
				hasMapOnStack = true
			}
		}
	}
	if err := flushKw(); err != nil {
		return err
	}
	if !hasMapOnStack {
		c.emit(grexvm.OpMakeMap.With(0))
	}

	c.emit(grexvm.OpCallKw)
	c.observe()
	return nil
}

func (c *compiler) compileListExpr(e *syntax.ListExpr) error {
	for _, elem := range e.List {
		if err := c.compileExpr(elem); err != nil {
			return err
		}
	}
	c.emit(grexvm.OpMakeList.With(len(e.List)))
	return nil
}

func (c *compiler) compileDictExpr(e *syntax.DictExpr) error {
	for _, entry := range e.List {
		entry := entry.(*syntax.DictEntry)
		if err := c.compileExpr(entry.Key); err != nil {
			return err
		}
		if err := c.compileExpr(entry.Value); err != nil {
			return err
		}
	}
	c.emit(grexvm.OpMakeMap.With(len(e.List)))
	return nil
}

func (c *compiler) compileIndexExpr(e *syntax.IndexExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	if err := c.compileExpr(e.Y); err != nil {
		return err
	}
	c.emit(grexvm.OpGetIndex)
	return nil
}

func (c *compiler) compileTupleExpr(e *syntax.TupleExpr) error {
	for _, elem := range e.List {
		if err := c.compileExpr(elem); err != nil {
			return err
		}
	}
	c.emit(grexvm.OpMakeTuple.With(len(e.List)))
	return nil
}

func (c *compiler) compileSliceArgs(node *syntax.SliceExpr) error {
	if node.Lo != nil {
		if err := c.compileExpr(node.Lo); err != nil {
			return err
		}
	} else {
		c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
	}
	if node.Hi != nil {
		if err := c.compileExpr(node.Hi); err != nil {
			return err
		}
	} else {
		c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
	}
	if node.Step != nil {
		if err := c.compileExpr(node.Step); err != nil {
			return err
		}
	} else {
		c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
	}
	return nil
}

func (c *compiler) compileSliceExpr(e *syntax.SliceExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	if err := c.compileSliceArgs(e); err != nil {
		return err
	}
	c.emit(grexvm.OpGetSlice)
	return nil
}

func (c *compiler) compileDotExpr(e *syntax.DotExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	c.emit(grexvm.OpLoadConst.With(c.addConst(e.Name.Name)))
	c.emit(grexvm.OpGetAttr)
	return nil
}

func (c *compiler) compileCondExpr(e *syntax.CondExpr) error {
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}
	jumpFalseIP := c.currentIP()
	c.emit(grexvm.OpJumpFalse)

	if err := c.compileExpr(e.True); err != nil {
		return err
	}

	jumpEndIP := c.currentIP()
	c.emit(grexvm.OpJump)

	c.patchJump(jumpFalseIP, c.currentIP())

	if err := c.compileExpr(e.False); err != nil {
		return err
	}

	c.patchJump(jumpEndIP, c.currentIP())
	return nil
}

func (c *compiler) compileLambdaExpr(e *syntax.LambdaExpr) error {
	sub := newCompiler("<lambda>", c.directives)
	sub.curLine = c.curLine
	if err := sub.compileExpr(e.Body); err != nil {
		return err
	}
	sub.emit(grexvm.OpReturn)

	fn := sub.toFunction()
	var err error
	var isVariadic bool
	var defaults []syntax.Expr
	fn.ParamNames, defaults, isVariadic, err = c.extractParamNames(e.Params)
	if err != nil {
		return err
	}
	fn.NumParams = len(fn.ParamNames)
	fn.NumDefaults = len(defaults)
	fn.Variadic = isVariadic

	for _, d := range defaults {
		if err := c.compileExpr(d); err != nil {
			return err
		}
	}

	c.emit(grexvm.OpMakeClosure.With(c.addConst(fn)))
	return nil
}

func (c *compiler) compileComprehension(e *syntax.Comprehension) error {
	c.emit(grexvm.OpEnterScope)

	if e.Curly {
		c.emit(grexvm.OpMakeMap.With(0))
	} else {
		c.emit(grexvm.OpMakeList.With(0))
	}

	resultName := ".result"
	c.emit(grexvm.OpDefVar.With(c.addConst(resultName)))

	if err := c.compileComprehensionClauses(e, 0, resultName); err != nil {
		return err
	}

	c.emit(grexvm.OpLoadVar.With(c.addConst(resultName)))
	c.emit(grexvm.OpLeaveScope)
	return nil
}

func (c *compiler) compileComprehensionClauses(e *syntax.Comprehension, idx int, resultName string) error {
	if idx >= len(e.Clauses) {
		if e.Curly {
			entry, ok := e.Body.(*syntax.DictEntry)
			if !ok {
				return fmt.Errorf("dict comprehension body must be DictEntry")
			}

			c.emit(grexvm.OpLoadVar.With(c.addConst(resultName)))
			if err := c.compileExpr(entry.Key); err != nil {
				return err
			}
			if err := c.compileExpr(entry.Value); err != nil {
				return err
			}
			c.emit(grexvm.OpSetIndex)
		} else {
			c.emit(grexvm.OpLoadVar.With(c.addConst(resultName)))
			if err := c.compileExpr(e.Body); err != nil {
				return err
			}
			c.emit(grexvm.OpListAppend)
			c.emit(grexvm.OpPop)
		}
		return nil
	}

	clause := e.Clauses[idx]
	switch cl := clause.(type) {
	case *syntax.ForClause:
		if err := c.compileExpr(cl.X); err != nil {
			return err
		}
		c.emit(grexvm.OpGetIter)

		loopHeadIP := c.currentIP()
		nextIterIP := c.currentIP()
		c.emit(grexvm.OpNextIter)

		if err := c.compileStore(cl.Vars); err != nil {
			return err
		}

		if err := c.compileComprehensionClauses(e, idx+1, resultName); err != nil {
			return err
		}

		jumpBackIP := c.currentIP()
		c.emit(grexvm.OpJump)
		c.patchJump(jumpBackIP, loopHeadIP)

		endIP := c.currentIP()
		c.patchJump(nextIterIP, endIP)

	case *syntax.IfClause:
		if err := c.compileExpr(cl.Cond); err != nil {
			return err
		}
		jumpFalseIP := c.currentIP()
		c.emit(grexvm.OpJumpFalse)

		if err := c.compileComprehensionClauses(e, idx+1, resultName); err != nil {
			return err
		}

		c.patchJump(jumpFalseIP, c.currentIP())

	default:
		return fmt.Errorf("unsupported comprehension clause: %T", clause)
	}

	return nil
}

// Completion: 100% - Single-pass expression compiler complete
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/xyproto/jitexpr/internal/engine"
)

// maxNesting bounds parenthesis and unary operator nesting
const maxNesting = 1000

// RuntimeSymbols are the absolute addresses of the routines generated code calls
type RuntimeSymbols struct {
	Pow    uint64 // double pow(double, double)
	Fmod   uint64 // double fmod(double, double)
	Concat uint64 // char *concat(const char *, const char *), heap allocated
}

var keywordNames = []string{"null", "true", "false"}

// Compiler is a recursive-descent parser over a token slice that emits
// machine code while it parses. Every production leaves exactly one value
// on the native stack and returns only its static type.
//
//	expr    := add
//	add     := mul ( ('+' | '-') mul )*
//	mul     := unary ( ('*' | '**' | '/' | '%') unary )*
//	unary   := ('+' | '-')? unary | primary
//	primary := '(' expr ')' | 'null' | 'true' | 'false' | INT | FLOAT | STRING
type Compiler struct {
	tokens  []Token
	pos     int
	backend Backend
	regs    RegisterSet
	data    *Buffer
	stack   *VirtualStack
	symbols RuntimeSymbols
	nesting int
}

// NewCompiler creates a compiler that emits through backend and stores
// constants in data
func NewCompiler(tokens []Token, backend Backend, data *Buffer, symbols RuntimeSymbols) *Compiler {
	return &Compiler{
		tokens:  tokens,
		backend: backend,
		regs:    backend.Registers(),
		data:    data,
		stack:   NewVirtualStack(),
		symbols: symbols,
	}
}

// CompileTokens compiles one expression into a complete function
func CompileTokens(tokens []Token, backend Backend, data *Buffer, symbols RuntimeSymbols) (ValueType, error) {
	return NewCompiler(tokens, backend, data, symbols).Compile()
}

// Compile emits prologue, expression, return value and epilogue.
// This is the only place errors from the recursion are inspected.
func (c *Compiler) Compile() (ValueType, error) {
	c.backend.Prologue()

	t, err := c.expr()
	if err != nil {
		return TypeNull, err
	}
	if tok := c.peek(); tok.Type != TOKEN_EOF {
		if tok.Type == TOKEN_ILLEGAL {
			return TypeNull, SyntaxError(tok.Value, tok.Location())
		}
		return TypeNull, UnexpectedTokenError("an operator or end of input", tok)
	}

	if err := c.stack.Validate(1, "end of expression"); err != nil {
		return TypeNull, FatalError("unbalanced operand stack", err)
	}
	if t.IsFloat() {
		err = c.popFloat(c.regs.FResult)
	} else {
		err = c.popInt(c.regs.Result)
	}
	if err != nil {
		return TypeNull, FatalError("unbalanced operand stack", err)
	}
	if err := c.stack.Validate(0, "epilogue"); err != nil {
		return TypeNull, FatalError("unbalanced operand stack", err)
	}
	c.backend.Epilogue()

	if err := c.backend.Code().Err(); err != nil {
		return TypeNull, CodegenError(err)
	}
	if err := c.data.Err(); err != nil {
		return TypeNull, CodegenError(err)
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "compiled %d tokens to %d code bytes, %d data bytes, max stack depth %d, result %s\n",
			len(c.tokens), c.backend.Code().Offset(), c.data.Offset(), c.stack.MaxDepth(), t)
	}
	return t, nil
}

func (c *Compiler) peek() Token {
	if c.pos < len(c.tokens) {
		return c.tokens[c.pos]
	}
	// A slice without a trailing EOF ends here anyway
	var last Token
	if len(c.tokens) > 0 {
		last = c.tokens[len(c.tokens)-1]
	}
	return Token{Type: TOKEN_EOF, Line: last.Line, Column: last.Column + last.Length}
}

func (c *Compiler) advance() Token {
	tok := c.peek()
	if c.pos < len(c.tokens) {
		c.pos++
	}
	return tok
}

func (c *Compiler) enter(tok Token) error {
	c.nesting++
	if c.nesting > maxNesting {
		return SyntaxError(fmt.Sprintf("expression nested deeper than %d levels", maxNesting), tok.Location())
	}
	return nil
}

func (c *Compiler) leave() {
	c.nesting--
}

func (c *Compiler) expr() (ValueType, error) {
	return c.add()
}

var additiveOps = map[TokenType]Op{
	TOKEN_PLUS:  OpAdd,
	TOKEN_MINUS: OpSub,
}

var multiplicativeOps = map[TokenType]Op{
	TOKEN_STAR:  OpMul,
	TOKEN_POWER: OpPow,
	TOKEN_SLASH: OpDiv,
	TOKEN_MOD:   OpMod,
}

func (c *Compiler) add() (ValueType, error) {
	return c.binaryLevel(additiveOps, c.mul)
}

func (c *Compiler) mul() (ValueType, error) {
	return c.binaryLevel(multiplicativeOps, c.unary)
}

// binaryLevel compiles operand ( op operand )* left-associatively
func (c *Compiler) binaryLevel(ops map[TokenType]Op, operand func() (ValueType, error)) (ValueType, error) {
	left, err := operand()
	if err != nil {
		return TypeNull, err
	}
	for {
		opTok := c.peek()
		op, ok := ops[opTok.Type]
		if !ok {
			return left, nil
		}
		c.advance()
		right, err := operand()
		if err != nil {
			return TypeNull, err
		}
		left, err = c.binary(op, opTok, left, right)
		if err != nil {
			return TypeNull, err
		}
	}
}

// binary pops both operands, applies op and pushes the result
func (c *Compiler) binary(op Op, opTok Token, left, right ValueType) (ValueType, error) {
	result, coercion, err := Promote(op, left, right)
	if err != nil {
		return TypeNull, TypeMismatchError(err, opTok.Location())
	}
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "compile: %s %s %s -> %s (%s)\n", left, op, right, result, coercion)
	}

	r := c.regs
	switch coercion {
	case CoerceNone:
		if err := c.popInt(r.Arg); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		if err := c.popInt(r.Acc); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		c.backend.IntBinary(op, r.Acc, r.Arg)

	case CoerceFloat:
		if err := c.popAsFloat(r.FArg, r.Arg); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		if err := c.popAsFloat(r.FAcc, r.Acc); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		switch op {
		case OpMod:
			if err := c.callRuntime("fmod", c.symbols.Fmod, opTok); err != nil {
				return TypeNull, err
			}
			c.backend.MoveFloat(r.FAcc, r.FResult)
		case OpPow:
			if err := c.callRuntime("pow", c.symbols.Pow, opTok); err != nil {
				return TypeNull, err
			}
			c.backend.MoveFloat(r.FAcc, r.FResult)
		default:
			c.backend.FloatBinary(op, r.FAcc, r.FArg)
		}

	case CoerceConcat:
		if err := c.popInt(r.IntArgs[1]); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		if err := c.popInt(r.IntArgs[0]); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		if err := c.callRuntime("string concatenation", c.symbols.Concat, opTok); err != nil {
			return TypeNull, err
		}
		c.backend.MoveReg(r.Acc, r.Result)
	}

	c.push(result)
	return result, nil
}

func (c *Compiler) callRuntime(name string, addr uint64, at Token) error {
	if addr == 0 {
		cerr := CodegenError(fmt.Errorf("%w: runtime routine %s", ErrNoCgo, name))
		cerr.Location = at.Location()
		cerr.Context.HelpText = "build with CGO_ENABLED=1 to link the runtime routines"
		return cerr
	}
	c.backend.CallAbsolute(addr)
	return nil
}

func (c *Compiler) unary() (ValueType, error) {
	tok := c.peek()
	var op Op
	switch tok.Type {
	case TOKEN_PLUS:
		op = OpAdd
	case TOKEN_MINUS:
		op = OpSub
	default:
		return c.primary()
	}
	c.advance()
	if err := c.enter(tok); err != nil {
		return TypeNull, err
	}
	defer c.leave()

	operand, err := c.unary()
	if err != nil {
		return TypeNull, err
	}
	result, err := UnaryResult(op, operand)
	if err != nil {
		return TypeNull, TypeMismatchError(err, tok.Location())
	}

	r := c.regs
	switch {
	case op == OpAdd && operand == TypeInt:
		// Identity: the slot already holds an Int
		return result, nil
	case op == OpAdd:
		if err := c.popFloat(r.FAcc); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		c.backend.FloatToInt(r.Acc, r.FAcc)
	case operand.IsFloat():
		if err := c.popFloat(r.FAcc); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		c.backend.FloatNegate(r.FAcc)
	default:
		if err := c.popInt(r.Acc); err != nil {
			return TypeNull, FatalError("unbalanced operand stack", err)
		}
		c.backend.IntNegate(r.Acc)
	}
	c.push(result)
	return result, nil
}

func (c *Compiler) primary() (ValueType, error) {
	tok := c.advance()
	r := c.regs

	switch tok.Type {
	case TOKEN_LPAREN:
		if err := c.enter(tok); err != nil {
			return TypeNull, err
		}
		defer c.leave()
		t, err := c.expr()
		if err != nil {
			return TypeNull, err
		}
		if closing := c.peek(); closing.Type != TOKEN_RPAREN {
			cerr := UnexpectedTokenError("')'", closing)
			cerr.Context.HelpText = fmt.Sprintf("the '(' at %s is never closed", tok.Location())
			return TypeNull, cerr
		}
		c.advance()
		return t, nil

	case TOKEN_NULL:
		c.backend.LoadImmediate(r.Acc, 0)
		c.push(TypeNull)
		return TypeNull, nil

	case TOKEN_TRUE, TOKEN_FALSE:
		var v uint64
		if tok.Type == TOKEN_TRUE {
			v = 1
		}
		c.backend.LoadImmediate(r.Acc, v)
		c.push(TypeBool)
		return TypeBool, nil

	case TOKEN_INT:
		c.backend.LoadImmediate(r.Acc, uint64(tok.Int))
		c.push(TypeInt)
		return TypeInt, nil

	case TOKEN_FLOAT:
		c.backend.LoadFloat(r.FAcc, c.floatConstant(tok.Float))
		c.push(TypeFloat)
		return TypeFloat, nil

	case TOKEN_STRING:
		c.backend.LoadImmediate(r.Acc, c.stringConstant(tok.Value))
		c.push(TypeString)
		return TypeString, nil

	case TOKEN_IDENT:
		cerr := SyntaxError(fmt.Sprintf("unknown identifier '%s'", tok.Value), tok.Location())
		if similar := engine.FindSimilar(tok.Value, keywordNames, 2, 1); len(similar) > 0 {
			cerr.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", similar[0])
		} else {
			cerr.Context.HelpText = "expressions have no variables; the only words are null, true and false"
		}
		return TypeNull, cerr

	case TOKEN_ILLEGAL:
		return TypeNull, SyntaxError(tok.Value, tok.Location())

	default:
		return TypeNull, UnexpectedTokenError("an operand", tok)
	}
}

// floatConstant stores f 8-byte aligned in the data buffer and returns its address
func (c *Compiler) floatConstant(f float64) uint64 {
	c.data.Align(8)
	addr := c.data.Addr()
	c.data.WriteUint64(math.Float64bits(f))
	return addr
}

// stringConstant stores s NUL-terminated and 8-byte aligned and returns its address
func (c *Compiler) stringConstant(s string) uint64 {
	c.data.Align(8)
	addr := c.data.Addr()
	c.data.Write([]byte(s))
	c.data.WriteByte(0)
	return addr
}

func (c *Compiler) push(t ValueType) {
	if t.IsFloat() {
		c.backend.PushFloat(c.regs.FAcc)
		c.stack.Push(t, c.regs.FAcc)
		return
	}
	c.backend.Push(c.regs.Acc)
	c.stack.Push(t, c.regs.Acc)
}

func (c *Compiler) popInt(reg string) error {
	t, err := c.stack.Pop(reg)
	if err != nil {
		return err
	}
	if t.IsFloat() {
		return fmt.Errorf("%w: popped %s into integer register %s", ErrStackBalance, t, reg)
	}
	c.backend.Pop(reg)
	return nil
}

func (c *Compiler) popFloat(freg string) error {
	t, err := c.stack.Pop(freg)
	if err != nil {
		return err
	}
	if !t.IsFloat() {
		return fmt.Errorf("%w: popped %s into float register %s", ErrStackBalance, t, freg)
	}
	c.backend.PopFloat(freg)
	return nil
}

// popAsFloat pops a numeric slot into freg, converting an Int through reg
func (c *Compiler) popAsFloat(freg, reg string) error {
	if t, ok := c.stack.Top(); ok && t.IsFloat() {
		return c.popFloat(freg)
	}
	if err := c.popInt(reg); err != nil {
		return err
	}
	c.backend.IntToFloat(freg, reg)
	return nil
}

// Package parser turns a token stream from internal/lexer into the
// internal/ast tree: recursive-descent for statements and items, Pratt
// precedence climbing for expressions, split one file per concern
// (parser.go / parser_expr.go / parser_pattern.go / parser_type.go /
// parser_decl.go).
package parser

import (
	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

// maxParseDepth bounds expression/type recursion so a deeply nested or
// adversarial input fails with a diagnostic (E012) instead of overflowing
// the goroutine stack with unbounded parseExpression recursion.
const maxParseDepth = 256

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parser consumes tokens from a single lexer.Lexer and produces an
// *ast.Module. It is not safe for concurrent use; internal/query gives
// each file its own Parser per parse.
type Parser struct {
	l    *lexer.Lexer
	file string

	curToken  lexer.Token
	peekToken lexer.Token

	errors diag.List
	depth  int

	// noStructLiteral suppresses struct-literal parsing of `Name { ... }`
	// while parsing a condition (if/while/match subject), so the `{` that
	// opens the following block is never mistaken for one. A counter, not
	// a bool, so nested conditions compose.
	noStructLiteral int

	// MultiError, when true, keeps parsing past an error by substituting an
	// ast.ExprError recovery node instead of aborting via panic/recover,
	// the parser-level analogue of checker.Checker.MultiError.
	MultiError bool

	// MaxDepth overrides maxParseDepth when non-zero, letting internal/config
	// tighten or loosen the recursion bound per embedding host.
	MaxDepth int

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New creates a Parser over l, priming both the current and peek token.
func New(l *lexer.Lexer, file string) *Parser {
	p := &Parser{l: l, file: file}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.INT, p.parseIntLit)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLit)
	p.registerPrefix(lexer.STRING, p.parseStringLit)
	p.registerPrefix(lexer.STRING_INTERP_START, p.parseStringInterp)
	p.registerPrefix(lexer.TRUE, p.parseBoolLit)
	p.registerPrefix(lexer.FALSE, p.parseBoolLit)
	p.registerPrefix(lexer.IDENT, p.parseIdentOrStructLit)
	p.registerPrefix(lexer.SELF, p.parseSelfExpr)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedOrTuple)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLit)
	p.registerPrefix(lexer.LBRACE, p.parseBlockExpr)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpr)
	p.registerPrefix(lexer.NOT, p.parsePrefixExpr)
	p.registerPrefix(lexer.TILDE, p.parsePrefixExpr)
	p.registerPrefix(lexer.AMP, p.parseRefExpr)
	p.registerPrefix(lexer.STAR, p.parseDerefExpr)
	p.registerPrefix(lexer.IF, p.parseIfExpr)
	p.registerPrefix(lexer.MATCH, p.parseMatchExpr)
	p.registerPrefix(lexer.LOOP, p.parseLoopExpr)
	p.registerPrefix(lexer.WHILE, p.parseWhileExpr)
	p.registerPrefix(lexer.PIPE, p.parseLambdaExpr)
	p.registerPrefix(lexer.OROR, p.parseLambdaExprNoParams)
	p.registerPrefix(lexer.COMPTIME, p.parseComptimeExpr)
	p.registerPrefix(lexer.ASSERT, p.parseAssertExpr)
	p.registerPrefix(lexer.ASSUME, p.parseAssumeExpr)
	p.registerPrefix(lexer.OLD, p.parseOldExpr)
	p.registerPrefix(lexer.DOTDOT, p.parseRangeFromHere)
	p.registerPrefix(lexer.DOTDOTEQ, p.parseRangeFromHere)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, t := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NEQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE,
		lexer.ANDAND, lexer.OROR, lexer.AMP, lexer.PIPE, lexer.CARET,
		lexer.SHL, lexer.SHR,
	} {
		p.registerInfix(t, p.parseBinaryExpr)
	}
	p.registerInfix(lexer.AS, p.parseCastExpr)
	p.registerInfix(lexer.LPAREN, p.parseCallExpr)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpr)
	p.registerInfix(lexer.DOT, p.parseDotExpr)
	p.registerInfix(lexer.DCOLON, p.parsePathExpr)
	p.registerInfix(lexer.ASSIGN, p.parseAssignExpr)
	p.registerInfix(lexer.PLUSEQ, p.parseAssignOpExpr)
	p.registerInfix(lexer.MINUSEQ, p.parseAssignOpExpr)
	p.registerInfix(lexer.STAREQ, p.parseAssignOpExpr)
	p.registerInfix(lexer.SLASHEQ, p.parseAssignOpExpr)
	p.registerInfix(lexer.QUESTION, p.parseTryExpr)
	p.registerInfix(lexer.BANG, p.parseBangExpr)
	p.registerInfix(lexer.DOTDOT, p.parseRangeExpr)
	p.registerInfix(lexer.DOTDOTEQ, p.parseRangeExpr)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t lexer.TokenType, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t lexer.TokenType, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances past the expected token, or records E010 and returns
// false without advancing.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t.String())
	return false
}

func (p *Parser) curPos() diag.Span {
	return diag.Span{Start: p.curToken.Column, End: p.curToken.Column + len(p.curToken.Literal), File: p.file}
}

func (p *Parser) peekPos() diag.Span {
	return diag.Span{Start: p.peekToken.Column, End: p.peekToken.Column + len(p.peekToken.Literal), File: p.file}
}

func (p *Parser) spanFrom(start diag.Span) diag.Span {
	end := p.curToken.Column + len(p.curToken.Literal)
	return diag.Span{Start: start.Start, End: end, File: p.file}
}

func (p *Parser) curPrecedence() int { return p.curToken.Precedence() }

// peekPrecedence is the Pratt loop's binding power for the peeked token.
// lexer.Token.Precedence() only covers the conventional binary operators;
// assignment, the postfix `?`/`!` operators, and range `..`/`..=` are
// infix-registered too but carry no entry in that table (they default to
// 0), so the generic "precedence < peekPrecedence()" loop would never fire
// for them when called from a statement's top-level parseExpression(0).
// This wrapper gives each a binding power of its own without touching the
// shared lexer table: postfix ops bind tighter than every binary operator,
// assignment and ranges bind just loose enough to still fire at the
// statement floor.
func (p *Parser) peekPrecedence() int {
	switch p.peekToken.Type {
	case lexer.QUESTION, lexer.BANG:
		return 13
	case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ,
		lexer.DOTDOT, lexer.DOTDOTEQ:
		return 1
	default:
		return p.peekToken.Precedence()
	}
}

// enterDepth increments the shared recursion counter, reporting E012 and
// panicking with parseAbort once maxParseDepth is exceeded regardless of
// MultiError — a malformed or adversarial file that nests this deep has no
// well-formed recovery node to substitute.
func (p *Parser) enterDepth() {
	p.depth++
	limit := p.maxDepth()
	if p.depth > limit {
		d := diag.New(diag.E012, p.curPos(), "maximum parse recursion depth (%d) exceeded", limit)
		p.errors = append(p.errors, d)
		panic(parseAbort{diagnostic: d})
	}
}

func (p *Parser) maxDepth() int {
	if p.MaxDepth > 0 {
		return p.MaxDepth
	}
	return maxParseDepth
}

func (p *Parser) leaveDepth() { p.depth-- }

// ParseFile parses the whole token stream into a Module, recovering from
// any parseAbort raised by a fail-fast error so the caller always gets back
// a non-nil diag.List describing what went wrong instead of a bare panic.
func (p *Parser) ParseFile(modulePath string) (mod *ast.Module, errs diag.List) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseAbort); ok {
				mod = ast.NewModule(diag.Span{File: p.file}, modulePath, nil)
				errs = p.errors
				return
			}
			panic(r)
		}
	}()

	start := p.curPos()
	var items []ast.Item
	for !p.curTokenIs(lexer.EOF) {
		item := p.parseItem()
		if item != nil {
			items = append(items, item)
		}
		p.nextToken()
	}
	return ast.NewModule(p.spanFrom(start), modulePath, items), p.errors
}

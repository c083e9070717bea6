package parser

import (
	"strconv"

	"github.com/vaislang/vais/internal/ast"
	"github.com/vaislang/vais/internal/diag"
	"github.com/vaislang/vais/internal/lexer"
)

// parseExpression is the Pratt precedence-climbing core: it parses one
// prefix expression, then repeatedly folds in infix operators whose
// precedence exceeds the caller's floor, left-associatively. Every
// entry is guarded by enterDepth/leaveDepth so a degenerate input
// fails with a diagnostic instead of overflowing the stack.
func (p *Parser) parseExpression(precedence int) ast.Expr {
	p.enterDepth()
	defer p.leaveDepth()

	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		p.noPrefixParseFnError()
		return ast.NewExprError(p.curPos())
	}
	left := prefix()

	for !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseExprStatement() ast.Expr {
	return p.parseExpression(0)
}

// --- literals -------------------------------------------------------------

func (p *Parser) parseIntLit() ast.Expr {
	span := p.curPos()
	v, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.errorf(span, diag.E001, "malformed integer literal %q", p.curToken.Literal)
		return ast.NewExprError(span)
	}
	return ast.NewIntLit(span, v)
}

func (p *Parser) parseFloatLit() ast.Expr {
	span := p.curPos()
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(span, diag.E001, "malformed float literal %q", p.curToken.Literal)
		return ast.NewExprError(span)
	}
	return ast.NewFloatLit(span, v)
}

func (p *Parser) parseBoolLit() ast.Expr {
	return ast.NewBoolLit(p.curPos(), p.curTokenIs(lexer.TRUE))
}

func (p *Parser) parseStringLit() ast.Expr {
	return ast.NewStringLit(p.curPos(), p.curToken.Literal)
}

// parseStringInterp reassembles an interpolated string from
// STRING_INTERP_START/MID/END chunk tokens, parsing the embedded `${...}`
// expressions between chunks. internal/lexer emits none of these tokens
// (readString returns a single STRING token), so lexed source never
// reaches this function.
func (p *Parser) parseStringInterp() ast.Expr {
	start := p.curPos()
	var chunks []string
	var exprs []ast.Expr

	chunks = append(chunks, p.curToken.Literal)
	for p.peekTokenIs(lexer.STRING_INTERP_MID) || p.peekTokenIs(lexer.STRING_INTERP_END) {
		p.nextToken() // consume the chunk token, land on its first expr token
		exprs = append(exprs, p.parseExpression(0))
		if !p.expectPeek(lexer.STRING_INTERP_MID) && !p.peekTokenIs(lexer.STRING_INTERP_END) {
			break
		}
		chunks = append(chunks, p.curToken.Literal)
		if p.curTokenIs(lexer.STRING_INTERP_END) {
			break
		}
	}
	return ast.NewStringInterp(p.spanFrom(start), chunks, exprs)
}

// --- identifiers / struct literals -----------------------------------------

func (p *Parser) parseIdentOrStructLit() ast.Expr {
	span := p.curPos()
	name := p.curToken.Literal
	if p.noStructLiteral == 0 && p.peekTokenIs(lexer.LBRACE) && looksLikeStructLit(name) {
		return p.parseStructLitBody(span, name)
	}
	return ast.NewIdent(span, name)
}

// looksLikeStructLit restricts struct-literal parsing to capitalized type
// names, so a bare lowercase identifier followed by `{` (e.g. the start of
// a block after a condition) is never misread as a struct literal.
func looksLikeStructLit(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parseStructLitBody(start diag.Span, typeName string) ast.Expr {
	p.nextToken() // consume '{'
	var fields []ast.StructLitField
	var spread ast.Expr
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.DOTDOT) {
			p.nextToken()
			spread = p.parseExpression(0)
			p.nextToken()
			break
		}
		if !p.curTokenIs(lexer.IDENT) {
			p.errorf(p.curPos(), diag.E010, "expected field name in struct literal, got %s", p.curToken.Type)
			break
		}
		fieldName := p.curToken.Literal
		var value ast.Expr
		if p.peekTokenIs(lexer.COLON) {
			p.nextToken() // ':'
			p.nextToken()
			value = p.parseExpression(0)
		} else {
			value = ast.NewIdent(p.curPos(), fieldName)
		}
		fields = append(fields, ast.StructLitField{Name: fieldName, Value: value})
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return ast.NewStructLit(p.spanFrom(start), typeName, fields, spread)
}

func (p *Parser) parseSelfExpr() ast.Expr {
	return ast.NewIdent(p.curPos(), "self")
}

// --- grouping / tuples / arrays --------------------------------------------

func (p *Parser) parseGroupedOrTuple() ast.Expr {
	start := p.curPos()
	p.nextToken() // consume '('
	if p.curTokenIs(lexer.RPAREN) {
		return ast.NewTupleLit(p.spanFrom(start), nil) // `()`, the unit value
	}
	first := p.parseExpression(0)
	if p.peekTokenIs(lexer.COMMA) {
		elems := []ast.Expr{first}
		for p.peekTokenIs(lexer.COMMA) {
			p.nextToken() // ','
			if p.peekTokenIs(lexer.RPAREN) {
				break
			}
			p.nextToken()
			elems = append(elems, p.parseExpression(0))
		}
		if !p.expectPeek(lexer.RPAREN) {
			return ast.NewExprError(p.spanFrom(start))
		}
		return ast.NewTupleLit(p.spanFrom(start), elems)
	}
	if !p.expectPeek(lexer.RPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	return first
}

func (p *Parser) parseArrayLit() ast.Expr {
	start := p.curPos()
	p.nextToken() // consume '['
	var elems []ast.Expr
	for !p.curTokenIs(lexer.RBRACKET) && !p.curTokenIs(lexer.EOF) {
		elems = append(elems, p.parseExpression(0))
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return ast.NewArrayLit(p.spanFrom(start), elems)
}

// --- unary / ref / deref ----------------------------------------------------

func (p *Parser) parsePrefixExpr() ast.Expr {
	start := p.curPos()
	var op ast.UnaryOp
	switch p.curToken.Type {
	case lexer.MINUS:
		op = ast.OpNeg
	case lexer.NOT:
		op = ast.OpNot
	case lexer.TILDE:
		op = ast.OpBitNot
	}
	p.nextToken()
	operand := p.parseExpression(12) // unary binds tighter than all binary ops
	return ast.NewUnary(p.spanFrom(start), op, operand)
}

func (p *Parser) parseRefExpr() ast.Expr {
	start := p.curPos()
	op := ast.OpRef
	if p.peekTokenIs(lexer.MUT) {
		p.nextToken()
		op = ast.OpRefMut
	}
	p.nextToken()
	operand := p.parseExpression(12)
	return ast.NewUnary(p.spanFrom(start), op, operand)
}

func (p *Parser) parseDerefExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	operand := p.parseExpression(12)
	return ast.NewUnary(p.spanFrom(start), ast.OpDeref, operand)
}

// --- binary / cast ----------------------------------------------------------

var binOpTable = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUS: ast.OpAdd, lexer.MINUS: ast.OpSub, lexer.STAR: ast.OpMul,
	lexer.SLASH: ast.OpDiv, lexer.PERCENT: ast.OpMod,
	lexer.EQ: ast.OpEq, lexer.NEQ: ast.OpNeq,
	lexer.LT: ast.OpLt, lexer.GT: ast.OpGt, lexer.LTE: ast.OpLte, lexer.GTE: ast.OpGte,
	lexer.ANDAND: ast.OpAnd, lexer.OROR: ast.OpOr,
	lexer.AMP: ast.OpBitAnd, lexer.PIPE: ast.OpBitOr, lexer.CARET: ast.OpBitXor,
	lexer.SHL: ast.OpShl, lexer.SHR: ast.OpShr,
}

func (p *Parser) parseBinaryExpr(left ast.Expr) ast.Expr {
	op, ok := binOpTable[p.curToken.Type]
	if !ok {
		p.errorf(p.curPos(), diag.E010, "unsupported binary operator %s", p.curToken.Type)
		return ast.NewExprError(p.curPos())
	}
	precedence := p.curPrecedence()
	start := left.Span()
	p.nextToken()
	right := p.parseExpression(precedence)
	return ast.NewBinary(p.spanFrom(start), op, left, right)
}

func (p *Parser) parseCastExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	p.nextToken()
	typ := p.parseType()
	return ast.NewCast(p.spanFrom(start), left, typ)
}

// --- call / method / field / index / path -----------------------------------

func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	start := callee.Span()
	args := p.parseExprList(lexer.RPAREN)
	return ast.NewCall(p.spanFrom(start), callee, args)
}

func (p *Parser) parseExprList(end lexer.TokenType) []ast.Expr {
	var list []ast.Expr
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(0))
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(0))
	}
	if !p.expectPeek(end) {
		return list
	}
	return list
}

func (p *Parser) parseIndexExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	p.nextToken()
	index := p.parseExpression(0)
	if !p.expectPeek(lexer.RBRACKET) {
		return ast.NewExprError(p.spanFrom(start))
	}
	return ast.NewIndexExpr(p.spanFrom(start), left, index)
}

func (p *Parser) parseDotExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewExprError(p.spanFrom(start))
	}
	name := p.curToken.Literal
	if p.peekTokenIs(lexer.LPAREN) {
		p.nextToken()
		var generics []ast.Type
		args := p.parseExprList(lexer.RPAREN)
		return ast.NewMethodCall(p.spanFrom(start), left, name, generics, args)
	}
	return ast.NewFieldExpr(p.spanFrom(start), left, name)
}

// parsePathExpr handles `Type::method`/`Module::item` path references,
// represented as a single Ident whose name is the left identifier's name
// joined to the item with `::` (e.g. `Type::method`).
func (p *Parser) parsePathExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	if !p.expectPeek(lexer.IDENT) {
		return ast.NewExprError(p.spanFrom(start))
	}
	var base string
	if id, ok := left.(*ast.Ident); ok {
		base = id.Name
	}
	return ast.NewIdent(p.spanFrom(start), base+"::"+p.curToken.Literal)
}

// --- assignment --------------------------------------------------------------

func (p *Parser) parseAssignExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	p.nextToken()
	value := p.parseExpression(0)
	return ast.NewAssign(p.spanFrom(start), left, value)
}

var assignOpTable = map[lexer.TokenType]ast.BinaryOp{
	lexer.PLUSEQ: ast.OpAdd, lexer.MINUSEQ: ast.OpSub, lexer.STAREQ: ast.OpMul, lexer.SLASHEQ: ast.OpDiv,
}

func (p *Parser) parseAssignOpExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	op := assignOpTable[p.curToken.Type]
	p.nextToken()
	value := p.parseExpression(0)
	return ast.NewAssignOp(p.spanFrom(start), op, left, value)
}

// --- try / unwrap / macro ----------------------------------------------------

func (p *Parser) parseTryExpr(left ast.Expr) ast.Expr {
	return ast.NewTry(p.spanFrom(left.Span()), left)
}

// parseBangExpr disambiguates `name!(...)`/`name![...]`/`name!{...}` macro
// invocations from the postfix `expr!` unwrap operator: the lexer never
// emits a distinct MACRO_BANG token (it always produces BANG), so the
// parser reinterprets a BANG immediately followed by a delimiter, applied
// to a bare identifier, as a macro call.
func (p *Parser) parseBangExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	if id, ok := left.(*ast.Ident); ok {
		switch p.peekToken.Type {
		case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
			delim := p.peekToken.Literal
			closing := map[string]lexer.TokenType{"(": lexer.RPAREN, "[": lexer.RBRACKET, "{": lexer.RBRACE}[delim]
			p.nextToken() // consume opening delim
			tokStart := p.curPos()
			depth := 1
			for depth > 0 && !p.curTokenIs(lexer.EOF) {
				p.nextToken()
				switch p.curToken.Type {
				case lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE:
					depth++
				case lexer.RPAREN, lexer.RBRACKET, lexer.RBRACE:
					if p.curToken.Type == closing || depth > 1 {
						depth--
					}
				}
			}
			return ast.NewMacroInvoke(p.spanFrom(start), id.Name, delim, p.spanFrom(tokStart))
		}
	}
	return ast.NewUnwrap(p.spanFrom(start), left)
}

// --- ranges -------------------------------------------------------------------

func (p *Parser) parseRangeFromHere() ast.Expr {
	start := p.curPos()
	inclusive := p.curTokenIs(lexer.DOTDOTEQ)
	p.nextToken()
	end := p.parseExpression(0)
	return ast.NewRangeExpr(p.spanFrom(start), nil, end, inclusive)
}

func (p *Parser) parseRangeExpr(left ast.Expr) ast.Expr {
	start := left.Span()
	inclusive := p.curTokenIs(lexer.DOTDOTEQ)
	if p.peekTokenIs(lexer.RBRACE) || p.peekTokenIs(lexer.RPAREN) || p.peekTokenIs(lexer.RBRACKET) || p.peekTokenIs(lexer.SEMICOLON) || p.peekTokenIs(lexer.COMMA) {
		return ast.NewRangeExpr(p.spanFrom(start), left, nil, inclusive)
	}
	p.nextToken()
	end := p.parseExpression(p.curPrecedence())
	return ast.NewRangeExpr(p.spanFrom(start), left, end, inclusive)
}

// --- control-flow expressions --------------------------------------------------

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	p.noStructLiteral++
	cond := p.parseExpression(0)
	p.noStructLiteral--
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewExprError(p.spanFrom(start))
	}
	then := p.parseBlock()
	var elseBlock *ast.Block
	var elseIf *ast.If
	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken() // 'else'
		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			elseIf, _ = p.parseIfExpr().(*ast.If)
		} else if p.expectPeek(lexer.LBRACE) {
			elseBlock = p.parseBlock()
		}
	}
	return ast.NewIf(p.spanFrom(start), cond, then, elseBlock, elseIf)
}

func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	p.noStructLiteral++
	subject := p.parseExpression(0)
	p.noStructLiteral--
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewExprError(p.spanFrom(start))
	}
	p.nextToken() // first token of first arm, or RBRACE
	var arms []ast.MatchArm
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		pat := p.parsePattern()
		var guard ast.Expr
		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			p.nextToken()
			guard = p.parseExpression(0)
		}
		if !p.expectPeek(lexer.FARROW) {
			break
		}
		p.nextToken()
		body := p.parseExpression(0)
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	return ast.NewMatch(p.spanFrom(start), subject, arms)
}

func (p *Parser) parseLoopExpr() ast.Expr {
	start := p.curPos()
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewExprError(p.spanFrom(start))
	}
	body := p.parseBlock()
	return ast.NewLoop(p.spanFrom(start), body)
}

func (p *Parser) parseWhileExpr() ast.Expr {
	start := p.curPos()
	p.nextToken()
	p.noStructLiteral++
	cond := p.parseExpression(0)
	p.noStructLiteral--
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewExprError(p.spanFrom(start))
	}
	body := p.parseBlock()
	return ast.NewWhile(p.spanFrom(start), cond, body)
}

// parseBlockExpr lets a bare `{ ... }` stand on its own as an expression
// (e.g. as a call argument), reusing parseBlock.
func (p *Parser) parseBlockExpr() ast.Expr {
	return p.parseBlock()
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.curPos()
	p.nextToken() // consume '{'
	var stmts []ast.Stmt
	var tail ast.Expr
	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) {
		stmt, isTail := p.parseStmt()
		if isTail {
			tail = stmt.(*ast.ExprStmt).Value
			p.nextToken()
			break
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
		p.nextToken()
	}
	return ast.NewBlock(p.spanFrom(start), stmts, tail)
}

// --- lambdas --------------------------------------------------------------

func (p *Parser) parseLambdaExpr() ast.Expr {
	start := p.curPos()
	capture := p.parseCaptureMode()
	var params []ast.Param
	p.nextToken() // past '|' (or past capture keyword into '|')
	for !p.curTokenIs(lexer.PIPE) && !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.IDENT) {
			name := p.curToken.Literal
			var typ ast.Type
			if p.peekTokenIs(lexer.COLON) {
				p.nextToken()
				p.nextToken()
				typ = p.parseType()
			}
			params = append(params, ast.Param{Name: name, Type: typ})
		}
		p.nextToken()
		if p.curTokenIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.nextToken() // body's first token
	body := p.parseExpression(0)
	return ast.NewLambda(p.spanFrom(start), params, capture, body)
}

// parseLambdaExprNoParams handles `|| expr`, which the lexer tokenizes as
// a single OROR token rather than two adjacent PIPE tokens.
func (p *Parser) parseLambdaExprNoParams() ast.Expr {
	start := p.curPos()
	p.nextToken()
	body := p.parseExpression(0)
	return ast.NewLambda(p.spanFrom(start), nil, ast.CaptureByRef, body)
}

func (p *Parser) parseCaptureMode() ast.LambdaCapture {
	return ast.CaptureByRef
}

// --- comptime / assert / assume / old ----------------------------------------

func (p *Parser) parseComptimeExpr() ast.Expr {
	start := p.curPos()
	if !p.expectPeek(lexer.LBRACE) {
		return ast.NewExprError(p.spanFrom(start))
	}
	body := p.parseBlock()
	return ast.NewComptimeExpr(p.spanFrom(start), body)
}

func (p *Parser) parseAssertExpr() ast.Expr {
	start := p.curPos()
	if !p.expectPeek(lexer.LPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	p.nextToken()
	cond := p.parseExpression(0)
	var message string
	if p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		if p.curTokenIs(lexer.STRING) {
			message = p.curToken.Literal
		}
	}
	if !p.expectPeek(lexer.RPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	return ast.NewAssertExpr(p.spanFrom(start), cond, message)
}

func (p *Parser) parseAssumeExpr() ast.Expr {
	start := p.curPos()
	if !p.expectPeek(lexer.LPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	p.nextToken()
	cond := p.parseExpression(0)
	if !p.expectPeek(lexer.RPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	return ast.NewAssumeExpr(p.spanFrom(start), cond)
}

func (p *Parser) parseOldExpr() ast.Expr {
	start := p.curPos()
	if !p.expectPeek(lexer.LPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	p.nextToken()
	value := p.parseExpression(0)
	if !p.expectPeek(lexer.RPAREN) {
		return ast.NewExprError(p.spanFrom(start))
	}
	return ast.NewOldExpr(p.spanFrom(start), value)
}

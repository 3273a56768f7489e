// Package parser turns a lexer.Token stream into a sqlast.Stmt by
// recursive descent, with precedence climbing for expressions: one parse
// method per statement keyword, a shared expression parser beneath them.
package parser

import (
	"strconv"

	"github.com/minifish-org/tegdb-sub001/internal/sql/lexer"
	"github.com/minifish-org/tegdb-sub001/internal/sqlast"
)

// Parser consumes tokens one at a time with one token of lookahead.
type Parser struct {
	lex  *lexer.Lexer
	cur  lexer.Token
	peek lexer.Token
}

// Parse parses a single statement (an optional trailing semicolon is
// consumed) out of src.
func Parse(src string) (sqlast.Stmt, error) {
	p := newParser(src)
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == lexer.SEMICOLON {
		p.next()
	}
	if p.cur.Type != lexer.EOF {
		return nil, p.errorf(p.cur, "unexpected trailing input", "end of statement")
	}
	return stmt, nil
}

func newParser(src string) *Parser {
	l := lexer.New(src)
	p := &Parser{lex: l}
	p.cur = l.Next()
	p.peek = l.Next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) errorf(tok lexer.Token, msg, expected string) error {
	if tok.Type == lexer.ILLEGAL {
		return lexer.ParseErrorAt(tok, tok.Lit, expected)
	}
	return lexer.ParseErrorAt(tok, msg, expected)
}

func (p *Parser) expect(t lexer.Type) (lexer.Token, error) {
	if p.cur.Type != t {
		return lexer.Token{}, p.errorf(p.cur, "unexpected token", t.String())
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func (p *Parser) expectIdent() (string, error) {
	tok, err := p.expect(lexer.IDENT)
	if err != nil {
		return "", err
	}
	return tok.Lit, nil
}

// expectExtensionName consumes an extension name: a plain identifier or a
// keyword token (so "vector", which lexes as VECTOR, is accepted).
func (p *Parser) expectExtensionName() (string, error) {
	if lexer.Lookup(p.cur.Lit) != p.cur.Type {
		return "", p.errorf(p.cur, "unexpected token", "extension name")
	}
	tok := p.cur
	p.next()
	return tok.Lit, nil
}

func (p *Parser) parseStmt() (sqlast.Stmt, error) {
	switch p.cur.Type {
	case lexer.SELECT:
		return p.parseSelect()
	case lexer.INSERT:
		return p.parseInsert()
	case lexer.UPDATE:
		return p.parseUpdate()
	case lexer.DELETE:
		return p.parseDelete()
	case lexer.CREATE:
		return p.parseCreate()
	case lexer.DROP:
		return p.parseDrop()
	case lexer.BEGIN:
		p.next()
		return &sqlast.BeginStmt{}, nil
	case lexer.COMMIT:
		p.next()
		return &sqlast.CommitStmt{}, nil
	case lexer.ROLLBACK:
		p.next()
		return &sqlast.RollbackStmt{}, nil
	default:
		return nil, p.errorf(p.cur, "expected a statement", "SELECT, INSERT, UPDATE, DELETE, CREATE, DROP, BEGIN, COMMIT or ROLLBACK")
	}
}

// --- DDL ---

func (p *Parser) parseCreate() (sqlast.Stmt, error) {
	p.next() // CREATE
	switch p.cur.Type {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.INDEX:
		return p.parseCreateIndex()
	case lexer.EXTENSION:
		p.next()
		name, err := p.expectExtensionName()
		if err != nil {
			return nil, err
		}
		return &sqlast.CreateExtensionStmt{Name: name}, nil
	default:
		return nil, p.errorf(p.cur, "expected TABLE, INDEX or EXTENSION after CREATE", "TABLE, INDEX or EXTENSION")
	}
}

func (p *Parser) parseDrop() (sqlast.Stmt, error) {
	p.next() // DROP
	switch p.cur.Type {
	case lexer.TABLE:
		p.next()
		ifExists, err := p.consumeIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &sqlast.DropTableStmt{Table: name, IfExists: ifExists}, nil
	case lexer.INDEX:
		p.next()
		ifExists, err := p.consumeIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &sqlast.DropIndexStmt{Name: name, IfExists: ifExists}, nil
	case lexer.EXTENSION:
		p.next()
		ifExists, err := p.consumeIfExists()
		if err != nil {
			return nil, err
		}
		name, err := p.expectExtensionName()
		if err != nil {
			return nil, err
		}
		return &sqlast.DropExtensionStmt{Name: name, IfExists: ifExists}, nil
	default:
		return nil, p.errorf(p.cur, "expected TABLE, INDEX or EXTENSION after DROP", "TABLE, INDEX or EXTENSION")
	}
}

func (p *Parser) consumeIfExists() (bool, error) {
	if p.cur.Type != lexer.IF {
		return false, nil
	}
	p.next()
	if _, err := p.expect(lexer.EXISTS); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Parser) parseCreateTable() (sqlast.Stmt, error) {
	p.next() // TABLE
	ifNotExists := false
	if p.cur.Type == lexer.IF {
		p.next()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var cols []sqlast.ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &sqlast.CreateTableStmt{Table: table, Columns: cols, IfNotExists: ifNotExists}, nil
}

func (p *Parser) parseColumnDef() (sqlast.ColumnDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return sqlast.ColumnDef{}, err
	}
	typ, err := p.parseColumnType()
	if err != nil {
		return sqlast.ColumnDef{}, err
	}
	var constraints []sqlast.ColumnConstraint
	for {
		switch p.cur.Type {
		case lexer.PRIMARY:
			p.next()
			if _, err := p.expect(lexer.KEY); err != nil {
				return sqlast.ColumnDef{}, err
			}
			constraints = append(constraints, sqlast.ConstraintPrimaryKey)
		case lexer.NOT:
			p.next()
			if _, err := p.expect(lexer.NULL_KW); err != nil {
				return sqlast.ColumnDef{}, err
			}
			constraints = append(constraints, sqlast.ConstraintNotNull)
		case lexer.UNIQUE:
			p.next()
			constraints = append(constraints, sqlast.ConstraintUnique)
		default:
			return sqlast.ColumnDef{Name: name, Type: typ, Constraints: constraints}, nil
		}
	}
}

func (p *Parser) parseColumnType() (sqlast.ColumnType, error) {
	switch p.cur.Type {
	case lexer.INTEGER_KW:
		p.next()
		return sqlast.ColumnType{Kind: sqlast.TypeInteger}, nil
	case lexer.REAL_KW:
		p.next()
		return sqlast.ColumnType{Kind: sqlast.TypeReal}, nil
	case lexer.TEXT_KW:
		p.next()
		n, err := p.parseOptionalLenArg()
		if err != nil {
			return sqlast.ColumnType{}, err
		}
		return sqlast.ColumnType{Kind: sqlast.TypeText, Len: n}, nil
	case lexer.BLOB_KW:
		p.next()
		n, err := p.parseOptionalLenArg()
		if err != nil {
			return sqlast.ColumnType{}, err
		}
		return sqlast.ColumnType{Kind: sqlast.TypeBlob, Len: n}, nil
	case lexer.VECTOR_KW:
		p.next()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return sqlast.ColumnType{}, err
		}
		dimTok, err := p.expect(lexer.INT)
		if err != nil {
			return sqlast.ColumnType{}, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return sqlast.ColumnType{}, err
		}
		dim, _ := strconv.Atoi(dimTok.Lit)
		return sqlast.ColumnType{Kind: sqlast.TypeVector, Dim: dim}, nil
	default:
		return sqlast.ColumnType{}, p.errorf(p.cur, "expected a column type", "INTEGER, REAL, TEXT, BLOB or VECTOR")
	}
}

// parseOptionalLenArg parses an optional "(n)" length argument for TEXT/BLOB.
func (p *Parser) parseOptionalLenArg() (int, error) {
	if p.cur.Type != lexer.LPAREN {
		return 0, nil
	}
	p.next()
	tok, err := p.expect(lexer.INT)
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(tok.Lit)
	return n, nil
}

func (p *Parser) parseCreateIndex() (sqlast.Stmt, error) {
	p.next() // INDEX
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeywordON(); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	col, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	using := sqlast.IndexBTree
	if p.cur.Type == lexer.USING {
		p.next()
		kindTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		switch kindTok.Lit {
		case "HNSW", "hnsw":
			using = sqlast.IndexHNSW
		case "IVF", "ivf":
			using = sqlast.IndexIVF
		case "LSH", "lsh":
			using = sqlast.IndexLSH
		default:
			return nil, p.errorf(kindTok, "unknown index kind "+kindTok.Lit, "HNSW, IVF or LSH")
		}
	}
	return &sqlast.CreateIndexStmt{Name: name, Table: table, Column: col, Using: using}, nil
}

// expectKeywordON consumes the ON keyword, which lexer.Lookup maps to
// IDENT since it is not reserved elsewhere in the grammar.
func (p *Parser) expectKeywordON() error {
	if p.cur.Type == lexer.IDENT && (p.cur.Lit == "ON" || p.cur.Lit == "on" || p.cur.Lit == "On") {
		p.next()
		return nil
	}
	return p.errorf(p.cur, "expected ON", "ON")
}

// --- DML ---

func (p *Parser) parseInsert() (sqlast.Stmt, error) {
	p.next() // INSERT
	if _, err := p.expect(lexer.INTO); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var cols []string
	if p.cur.Type == lexer.LPAREN {
		p.next()
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			cols = append(cols, name)
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.VALUES); err != nil {
		return nil, err
	}
	var rows [][]sqlast.Expr
	for {
		row, err := p.parseValueRow()
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	return &sqlast.InsertStmt{Table: table, Columns: cols, Rows: rows}, nil
}

func (p *Parser) parseValueRow() ([]sqlast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var vals []sqlast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, e)
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return vals, nil
}

func (p *Parser) parseUpdate() (sqlast.Stmt, error) {
	p.next() // UPDATE
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SET); err != nil {
		return nil, err
	}
	var assigns []sqlast.Assignment
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, sqlast.Assignment{Column: col, Value: val})
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	var where sqlast.Expr
	if p.cur.Type == lexer.WHERE {
		p.next()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &sqlast.UpdateStmt{Table: table, Assignments: assigns, Where: where}, nil
}

func (p *Parser) parseDelete() (sqlast.Stmt, error) {
	p.next() // DELETE
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var where sqlast.Expr
	if p.cur.Type == lexer.WHERE {
		p.next()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &sqlast.DeleteStmt{Table: table, Where: where}, nil
}

func (p *Parser) parseSelect() (sqlast.Stmt, error) {
	p.next() // SELECT
	var items []sqlast.Expr
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur.Type == lexer.COMMA {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	stmt := &sqlast.SelectStmt{Columns: items, Table: table}
	if p.cur.Type == lexer.WHERE {
		p.next()
		stmt.Where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.cur.Type == lexer.ORDER {
		p.next()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			desc := false
			if p.cur.Type == lexer.DESC {
				desc = true
				p.next()
			} else if p.cur.Type == lexer.ASC {
				p.next()
			}
			stmt.OrderBy = append(stmt.OrderBy, sqlast.OrderByItem{Expr: e, Desc: desc})
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
	}
	if p.cur.Type == lexer.LIMIT {
		p.next()
		tok, err := p.expect(lexer.INT)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid LIMIT value", "integer")
		}
		stmt.Limit = &n
	}
	return stmt, nil
}

func (p *Parser) parseSelectItem() (sqlast.Expr, error) {
	if p.cur.Type == lexer.ASTERISK {
		p.next()
		return &sqlast.StarExpr{}, nil
	}
	return p.parseExpr()
}

// --- expressions, precedence climbing ---
//
//	OR
//	AND
//	NOT (unary)
//	comparison (= != < <= > >= LIKE) / BETWEEN
//	additive (+ -)
//	multiplicative (* /)
//	unary minus
//	primary

func (p *Parser) parseExpr() (sqlast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (sqlast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.OR {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: sqlast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (sqlast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.AND {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: sqlast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (sqlast.Expr, error) {
	if p.cur.Type == lexer.NOT {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: sqlast.OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (sqlast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE, lexer.LIKE:
		op := binOpFor(p.cur.Type)
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &sqlast.BinaryExpr{Op: op, Left: left, Right: right}, nil
	case lexer.BETWEEN:
		p.next()
		return p.parseBetweenTail(left, false)
	case lexer.NOT:
		if p.peek.Type != lexer.BETWEEN {
			return left, nil
		}
		p.next() // NOT
		p.next() // BETWEEN
		return p.parseBetweenTail(left, true)
	default:
		return left, nil
	}
}

func (p *Parser) parseBetweenTail(operand sqlast.Expr, not bool) (sqlast.Expr, error) {
	lo, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.AND); err != nil {
		return nil, err
	}
	hi, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &sqlast.BetweenExpr{Operand: operand, Low: lo, High: hi, Not: not}, nil
}

func binOpFor(t lexer.Type) sqlast.BinaryOp {
	switch t {
	case lexer.EQ:
		return sqlast.OpEq
	case lexer.NEQ:
		return sqlast.OpNeq
	case lexer.LT:
		return sqlast.OpLt
	case lexer.LTE:
		return sqlast.OpLte
	case lexer.GT:
		return sqlast.OpGt
	case lexer.GTE:
		return sqlast.OpGte
	case lexer.LIKE:
		return sqlast.OpLike
	default:
		return sqlast.OpEq
	}
}

func (p *Parser) parseAdditive() (sqlast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.PLUS || p.cur.Type == lexer.MINUS {
		op := sqlast.OpAdd
		if p.cur.Type == lexer.MINUS {
			op = sqlast.OpSub
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (sqlast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.ASTERISK || p.cur.Type == lexer.SLASH {
		op := sqlast.OpMul
		if p.cur.Type == lexer.SLASH {
			op = sqlast.OpDiv
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (sqlast.Expr, error) {
	if p.cur.Type == lexer.MINUS {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: sqlast.OpNeg, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (sqlast.Expr, error) {
	tok := p.cur
	switch tok.Type {
	case lexer.INT:
		p.next()
		n, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid integer literal", "integer")
		}
		return &sqlast.Literal{Value: sqlast.Integer(n)}, nil
	case lexer.REAL:
		p.next()
		f, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid real literal", "real number")
		}
		return &sqlast.Literal{Value: sqlast.Real(f)}, nil
	case lexer.STRING:
		p.next()
		return &sqlast.Literal{Value: sqlast.Text(tok.Lit)}, nil
	case lexer.BLOB:
		p.next()
		b, err := lexer.DecodeBlob(tok.Lit)
		if err != nil {
			return nil, p.errorf(tok, err.Error(), "hex digits")
		}
		return &sqlast.Literal{Value: sqlast.Blob(b)}, nil
	case lexer.NULL_KW:
		p.next()
		return &sqlast.Literal{Value: sqlast.Null}, nil
	case lexer.PARAM:
		p.next()
		n, err := strconv.ParseUint(tok.Lit, 10, 32)
		if err != nil {
			return nil, p.errorf(tok, "invalid parameter index", "digits")
		}
		return &sqlast.ParamExpr{Index: uint32(n)}, nil
	case lexer.LBRACKET:
		return p.parseVectorLiteral()
	case lexer.LPAREN:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.ASTERISK:
		p.next()
		return &sqlast.StarExpr{}, nil
	case lexer.IDENT:
		p.next()
		if p.cur.Type == lexer.LPAREN {
			return p.parseFuncCall(tok.Lit)
		}
		return &sqlast.ColumnRef{Name: tok.Lit}, nil
	default:
		return nil, p.errorf(tok, "expected an expression", "literal, column, parameter, vector literal, or function call")
	}
}

func (p *Parser) parseVectorLiteral() (sqlast.Expr, error) {
	if _, err := p.expect(lexer.LBRACKET); err != nil {
		return nil, err
	}
	var elems []sqlast.Expr
	if p.cur.Type != lexer.RBRACKET {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return &sqlast.VectorLiteral{Elems: elems}, nil
}

func (p *Parser) parseFuncCall(name string) (sqlast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []sqlast.Expr
	if p.cur.Type == lexer.ASTERISK {
		p.next()
		args = append(args, &sqlast.StarExpr{})
	} else if p.cur.Type != lexer.RPAREN {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur.Type == lexer.COMMA {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &sqlast.FuncCall{Name: upperASCII(name), Args: args}, nil
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Num(literal string) *NumberLiteral {
	return NewNumberLiteral(literal)
}

// Expression helpers.

func Un(op string, operand Expression) *UnaryExpression {
	return NewUnaryExpression(op, operand)
}

func Bin(op string, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Assign(name string, value Expression) *AssignmentExpression {
	return NewAssignmentExpression(ID(name), value)
}

func Call(name string, args ...Expression) *FunctionCall {
	return NewFunctionCall(ID(name), args)
}

// Statement helpers.

func Expr(expr Expression) *ExpressionStatement {
	return NewExpressionStatement(expr)
}

func Block(stmts ...Statement) *BlockStatement {
	return NewBlockStatement(stmts)
}

func If(cond Expression, then Statement, elseBranch Statement) *IfStatement {
	return NewIfStatement(cond, then, elseBranch)
}

func While(cond Expression, body Statement) *WhileStatement {
	return NewWhileStatement(cond, body)
}

func Def(name string, params []string, body ...Statement) *FunctionDefinition {
	ids := make([]*Identifier, len(params))
	for i, p := range params {
		ids[i] = ID(p)
	}
	return NewFunctionDefinition(ID(name), ids, Block(body...))
}

func Print(args ...Expression) *PrintStatement {
	return NewPrintStatement(args)
}

func Ret(arg Expression) *ReturnStatement {
	return NewReturnStatement(arg)
}

func Prog(stmts ...Statement) *Program {
	return NewProgram(stmts)
}

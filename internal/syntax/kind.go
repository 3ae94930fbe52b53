package syntax

// Kind identifies the syntactic category of a Node. Node actions subscribe to
// kinds; a kind nobody subscribes to is never dispatched.
type Kind uint16

const (
	Unknown Kind = iota
	CompilationUnit
	NamespaceDeclaration
	ClassDeclaration
	StructDeclaration
	InterfaceDeclaration
	RecordDeclaration
	EnumDeclaration
	DelegateDeclaration
	MethodDeclaration
	ConstructorDeclaration
	DestructorDeclaration
	OperatorDeclaration
	PropertyDeclaration
	IndexerDeclaration
	EventDeclaration
	FieldDeclaration
	AccessorList
	AccessorDeclaration
	ParameterList
	Parameter
	BaseList
	ExplicitInterfaceSpecifier
	Block
	ArrowExpressionClause
	IdentifierName
	GenericName
	QualifiedName
	MemberAccessExpression
	InvocationExpression
	ArgumentList
	Argument
	AssignmentExpression
	ObjectCreationExpression
	VariableDeclaration
	VariableDeclarator
	LocalDeclarationStatement
	ExpressionStatement
	ReturnStatement
	IfStatement
	ForStatement
	ForEachStatement
	WhileStatement
	DoStatement
	SwitchStatement
	TryStatement
	CatchClause
	FinallyClause
	LambdaExpression
	AnonymousMethodExpression
	LocalFunctionStatement
	AttributeList
	Attribute
	ThisExpression
	BaseExpression
	LiteralExpression
	PredefinedType
	Comment
	Other

	kindCount
)

var kindNames = [kindCount]string{
	Unknown:                    "Unknown",
	CompilationUnit:            "CompilationUnit",
	NamespaceDeclaration:       "NamespaceDeclaration",
	ClassDeclaration:           "ClassDeclaration",
	StructDeclaration:          "StructDeclaration",
	InterfaceDeclaration:       "InterfaceDeclaration",
	RecordDeclaration:          "RecordDeclaration",
	EnumDeclaration:            "EnumDeclaration",
	DelegateDeclaration:        "DelegateDeclaration",
	MethodDeclaration:          "MethodDeclaration",
	ConstructorDeclaration:     "ConstructorDeclaration",
	DestructorDeclaration:      "DestructorDeclaration",
	OperatorDeclaration:        "OperatorDeclaration",
	PropertyDeclaration:        "PropertyDeclaration",
	IndexerDeclaration:         "IndexerDeclaration",
	EventDeclaration:           "EventDeclaration",
	FieldDeclaration:           "FieldDeclaration",
	AccessorList:               "AccessorList",
	AccessorDeclaration:        "AccessorDeclaration",
	ParameterList:              "ParameterList",
	Parameter:                  "Parameter",
	BaseList:                   "BaseList",
	ExplicitInterfaceSpecifier: "ExplicitInterfaceSpecifier",
	Block:                      "Block",
	ArrowExpressionClause:      "ArrowExpressionClause",
	IdentifierName:             "IdentifierName",
	GenericName:                "GenericName",
	QualifiedName:              "QualifiedName",
	MemberAccessExpression:     "MemberAccessExpression",
	InvocationExpression:       "InvocationExpression",
	ArgumentList:               "ArgumentList",
	Argument:                   "Argument",
	AssignmentExpression:       "AssignmentExpression",
	ObjectCreationExpression:   "ObjectCreationExpression",
	VariableDeclaration:        "VariableDeclaration",
	VariableDeclarator:         "VariableDeclarator",
	LocalDeclarationStatement:  "LocalDeclarationStatement",
	ExpressionStatement:        "ExpressionStatement",
	ReturnStatement:            "ReturnStatement",
	IfStatement:                "IfStatement",
	ForStatement:               "ForStatement",
	ForEachStatement:           "ForEachStatement",
	WhileStatement:             "WhileStatement",
	DoStatement:                "DoStatement",
	SwitchStatement:            "SwitchStatement",
	TryStatement:               "TryStatement",
	CatchClause:                "CatchClause",
	FinallyClause:              "FinallyClause",
	LambdaExpression:           "LambdaExpression",
	AnonymousMethodExpression:  "AnonymousMethodExpression",
	LocalFunctionStatement:     "LocalFunctionStatement",
	AttributeList:              "AttributeList",
	Attribute:                  "Attribute",
	ThisExpression:             "ThisExpression",
	BaseExpression:             "BaseExpression",
	LiteralExpression:          "LiteralExpression",
	PredefinedType:             "PredefinedType",
	Comment:                    "Comment",
	Other:                      "Other",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// IsTypeDeclaration reports whether k declares a named type.
func (k Kind) IsTypeDeclaration() bool {
	switch k {
	case ClassDeclaration, StructDeclaration, InterfaceDeclaration, RecordDeclaration, EnumDeclaration:
		return true
	}
	return false
}

// IsControlFlow reports whether k is a statement that opens a nested
// control-flow region.
func (k Kind) IsControlFlow() bool {
	switch k {
	case IfStatement, ForStatement, ForEachStatement, WhileStatement, DoStatement, SwitchStatement, TryStatement:
		return true
	}
	return false
}

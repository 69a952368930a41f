package load

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// --- Participle grammar structs ---
// A schema file is a list of datasource, generator, model and enum blocks.

// fileAST is the top-level grammar of a schema file.
type fileAST struct {
	Blocks []*blockAST `parser:"@@*"`
}

// blockAST is one of the top-level blocks.
type blockAST struct {
	Pos        lexer.Position
	Datasource *kvBlockAST `parser:"  'datasource' @@"`
	Generator  *kvBlockAST `parser:"| 'generator' @@"`
	Model      *modelAST   `parser:"| 'model' @@"`
	Enum       *enumAST    `parser:"| 'enum' @@"`
}

// kvBlockAST parses: name { key = expr ... }
type kvBlockAST struct {
	Name    string   `parser:"@Ident '{'"`
	Entries []*kvAST `parser:"@@* '}'"`
}

// kvAST parses: key = expr
type kvAST struct {
	Pos   lexer.Position
	Key   string   `parser:"@Ident '='"`
	Value *exprAST `parser:"@@"`
}

// modelAST parses: Name { field... @@attr... }
type modelAST struct {
	Name    string       `parser:"@Ident '{'"`
	Members []*memberAST `parser:"@@* '}'"`
}

// memberAST is either a block attribute or a field.
type memberAST struct {
	Pos       lexer.Position
	BlockAttr *attrAST  `parser:"  BlockAttr @@"`
	Field     *fieldAST `parser:"| @@"`
}

// fieldAST parses: name Type[]? @attr...
type fieldAST struct {
	Pos      lexer.Position
	Name     string     `parser:"@Ident"`
	Type     string     `parser:"@Ident"`
	List     bool       `parser:"@( '[' ']' )?"`
	Optional bool       `parser:"@'?'?"`
	Attrs    []*attrAST `parser:"( Attr @@ )*"`
}

// attrAST parses: name(.name)* ( args )?
type attrAST struct {
	Pos  lexer.Position
	Name []string  `parser:"@Ident ( '.' @Ident )*"`
	Args []*argAST `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

// argAST parses: (name:)? expr
type argAST struct {
	Name  string   `parser:"( @Ident ':' )?"`
	Value *exprAST `parser:"@@"`
}

// exprAST is a string, number, array, function call or identifier.
type exprAST struct {
	Pos    lexer.Position
	String *string    `parser:"  @String"`
	Number *string    `parser:"| @Number"`
	Array  bool       `parser:"| @'['"`
	Elems  []*exprAST `parser:"  ( @@ ( ',' @@ )* ','? )? ']'"`
	Func   *funcAST   `parser:"| @@"`
	Ident  *string    `parser:"| @Ident"`
}

// funcAST parses: name(args)
type funcAST struct {
	Name string    `parser:"@Ident '('"`
	Args []*argAST `parser:"( @@ ( ',' @@ )* )? ')'"`
}

// enumAST parses: Name { VALUE @map("v")... @@map("name") }
type enumAST struct {
	Name    string           `parser:"@Ident '{'"`
	Members []*enumMemberAST `parser:"@@* '}'"`
}

// enumMemberAST is either a block attribute or an enum value.
type enumMemberAST struct {
	Pos       lexer.Position
	BlockAttr *attrAST `parser:"  BlockAttr @@"`
	Value     *enumValueAST `parser:"| @@"`
}

// enumValueAST parses: NAME @attr...
type enumValueAST struct {
	Name  string     `parser:"@Ident"`
	Attrs []*attrAST `parser:"( Attr @@ )*"`
}

var schemaLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "DocComment", Pattern: `///[^\n]*`},
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "BlockAttr", Pattern: `@@`},
	{Name: "Attr", Pattern: `@`},
	{Name: "Punct", Pattern: `[{}\[\]()=,:?.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[fileAST](
	participle.Lexer(schemaLexer),
	participle.Elide("DocComment", "Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

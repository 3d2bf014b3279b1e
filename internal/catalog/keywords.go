package catalog

// Keywords is the fixed Lua keyword list offered by completion.
var Keywords = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for",
	"function", "if", "in", "local", "nil", "not", "or", "repeat",
	"return", "then", "true", "until", "while",
}

// keywordDocs backs hover for plain keywords.
var keywordDocs = map[string]string{
	"and":      "Logical conjunction. Returns the first operand when it is falsy, otherwise the second.",
	"break":    "Exits the innermost enclosing loop.",
	"do":       "Opens a block with its own scope, closed by `end`.",
	"else":     "The branch taken when no `if`/`elseif` condition held.",
	"elseif":   "An additional condition tested when the previous ones failed.",
	"end":      "Closes a block opened by `function`, `if`, `for`, `while`, or `do`.",
	"false":    "The boolean false value.",
	"for":      "Numeric (`for i = a, b`) or generic (`for k, v in ...`) loop.",
	"function": "Declares a function.",
	"if":       "Conditional statement: `if cond then ... end`.",
	"in":       "Separates loop variables from the iterator in a generic for.",
	"local":    "Declares a variable scoped to the enclosing block.",
	"nil":      "The absence of a value. Table fields set to nil are removed.",
	"not":      "Logical negation. Only `nil` and `false` are falsy.",
	"or":       "Logical disjunction. Returns the first operand when it is truthy, otherwise the second.",
	"repeat":   "Loop that runs its body before testing `until`.",
	"return":   "Returns values from a function or finishes the hook script.",
	"then":     "Introduces the body of an `if` or `elseif` condition.",
	"true":     "The boolean true value.",
	"until":    "Closes a `repeat` loop; the condition sees the loop body's locals.",
	"while":    "Loop that tests its condition before each iteration.",
}

// IsKeyword reports whether the word is a Lua keyword.
func IsKeyword(word string) bool {
	_, ok := keywordDocs[word]
	return ok
}

// KeywordDoc returns hover documentation for a keyword.
func KeywordDoc(word string) (string, bool) {
	doc, ok := keywordDocs[word]
	return doc, ok
}

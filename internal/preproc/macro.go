package preproc

// Macro is spec.md §3's Macro record: an object-like macro has no Params
// and a Value; a function-like macro has an ordered Params list, with
// __VA_ARGS__ mapped onto a synthetic last parameter when IsVariadic.
type Macro struct {
	Name       string
	Params     []string
	Value      string
	IsFunction bool
	IsVariadic bool
	IsBuiltin  bool
}

// builtinNames is consulted so #undef and re-#define of a built-in at
// least gets a diagnosable, consistent shape rather than silently doing
// nothing; spec.md doesn't mandate rejecting it, so we allow the
// redefinition but it no longer behaves specially once IsBuiltin is
// cleared.
var builtinNames = map[string]bool{
	"__FILE__": true, "__LINE__": true, "__COUNTER__": true,
	"__BASE_FILE__": true, "__INCLUDE_LEVEL__": true, "__func__": true,
}

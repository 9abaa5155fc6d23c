// Package builtins implements the host-runtime callback set (§6): a
// fixed table of PHP-core and bundled-extension symbols the resolver
// must never report as unresolved, since no analyzed file defines them.
package builtins

import "strings"

// classes lists PHP core/SPL class and interface names commonly
// referenced from application code. Not exhaustive — new engine/
// extension symbols are added here as they're hit in practice.
var classes = map[string]bool{
	"stdClass": true, "Exception": true, "Error": true, "TypeError": true,
	"ValueError": true, "ArgumentCountError": true, "ArithmeticError": true,
	"DivisionByZeroError": true, "RuntimeException": true, "LogicException": true,
	"InvalidArgumentException": true, "OutOfRangeException": true,
	"OutOfBoundsException": true, "DomainException": true, "LengthException": true,
	"RangeException": true, "OverflowException": true, "UnderflowException": true,
	"UnexpectedValueException": true, "JsonException": true,
	"ArrayObject": true, "ArrayIterator": true, "Iterator": true,
	"IteratorAggregate": true, "Countable": true, "Traversable": true,
	"Generator": true, "Closure": true, "Throwable": true, "Serializable": true,
	"JsonSerializable": true, "Stringable": true, "WeakMap": true, "WeakReference": true,
	"DateTime": true, "DateTimeImmutable": true, "DateInterval": true,
	"DateTimeZone": true, "SplStack": true, "SplQueue": true, "SplObjectStorage": true,
	"SplFixedArray": true, "SplDoublyLinkedList": true, "SplHeap": true,
	"SplMinHeap": true, "SplMaxHeap": true, "SplPriorityQueue": true,
	"PDO": true, "PDOStatement": true, "PDOException": true,
}

// functionPrefixes covers PHP's core function namespaces loosely: any
// lowercase function name starting with one of these is assumed built-in
// rather than user-defined, mirroring is_builtin_symbol's intended use as
// a coarse filter, not a precise one.
var functionPrefixes = []string{
	"array_", "str_", "preg_", "json_", "curl_", "pdo_", "mb_", "date_",
	"file_", "is_", "get_", "set_", "spl_", "iterator_", "hash_", "ctype_",
}

var bareFunctions = map[string]bool{
	"strlen": true, "count": true, "print_r": true, "var_dump": true,
	"implode": true, "explode": true, "sprintf": true, "printf": true,
	"trim": true, "ltrim": true, "rtrim": true, "substr": true,
	"strpos": true, "str_replace": true, "class_exists": true,
	"interface_exists": true, "trait_exists": true, "function_exists": true,
	"method_exists": true, "property_exists": true, "define": true,
	"defined": true, "require": true, "include": true,
}

// IsBuiltinSymbol reports whether fqn names a PHP-core or
// extension-provided symbol rather than one defined in analyzed source.
// A leading namespace separator is stripped; builtins live in the global
// namespace.
func IsBuiltinSymbol(fqn string) bool {
	name := strings.TrimPrefix(fqn, "\\")
	if classes[name] {
		return true
	}
	lower := strings.ToLower(name)
	if bareFunctions[lower] {
		return true
	}
	for _, prefix := range functionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// FileOfBuiltinFunction always reports "no file": PHP-core functions are
// compiled into the engine, not backed by a source file the bundler could
// include.
func FileOfBuiltinFunction(name string) (string, bool) {
	return "", false
}

// Package filter parses the expressions used to query the run history and
// renders them as SQL conditions.
//
//	phase = 'health-wait' and duration > 5s
//	scenario ~ /^About/ or (passed = false and status != 200)
//
// Grammar
//
// --- PARSER RULES ---
//
//	expression  : term ( "or" term )* ;
//	term        : factor ( "and" factor )* ;
//
//	factor      : equality
//	            | "(" expression ")" ;
//
//	equality    : IDENTIFIER ( "=" | "!=" | "<" | "<=" | ">" | ">=" ) value
//	            | IDENTIFIER ( "~" | "!~" ) REGEX_LITERAL ;
//
//	value       : STRING | NUMBER | BOOLEAN ;
//
// --- LEXER RULES ---
//
//	IDENTIFIER    : [a-zA-Z_.]+ ;
//	REGEX_LITERAL : '/' ( '\\/' | . )*? '/' ;
//	STRING        : "'" (.*?) "'" | "\"" (.*?) "\"" ;
//	BOOLEAN       : "true" | "false" ;
//	NUMBER        : [0-9]+(\.[0-9]+)? ( 'ms' | 's' | 'm' | 'h' )? ;
//
// Identifiers must name a column of the run history (see Columns). A NUMBER
// with a unit is a duration and is compared in milliseconds.
package filter

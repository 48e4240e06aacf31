// Package lang implements xdl, a case-insensitive, array-oriented scripting
// language in the IDL/GDL family.
//
// Source text passes through three stages:
//
//   - [Tokenize] turns text into tokens. Identifiers and keywords carry an
//     upper-case comparison key beside their original spelling, and a
//     trailing $ joins a line with the next.
//   - [Parse] builds a [Program] by recursive descent. Block constructs take
//     a single statement or a BEGIN...END block closed by END or by the
//     construct's own terminator (ENDFOR, ENDWHILE, ENDIF, ...).
//   - An [Interpreter] walks the tree against a stack of call frames.
//
// # Values
//
// Every value is a [Scalar], a [Complex], an [*Array], or a [*Nested] list.
// Arrays always carry a shape and store elements in row-major order, so
// REFORM only replaces the shape while TRANSPOSE reorders the data.
//
// # Example
//
//	a = FLTARR(10)
//	FOR i = 0, 9 DO a[i] = i * 2
//
//	FUNCTION norm, v
//	  RETURN, SQRT(TOTAL(v^2))
//	END
//
//	PRINT, norm(a[0:2])
//
// # Routines
//
// Calls that do not name a user FUNCTION or PRO are resolved through a
// [Registry]. [Builtins] returns the standard table; hosts may supply their
// own with [WithRegistry]. Both kinds of call accept NAME=value keywords and
// /NAME flags.
//
// # Errors
//
// Failures match one of the sentinel errors with errors.Is, such as
// [ErrUnboundVariable] or [ErrShapeMismatch]. Syntax errors also carry a
// [*SyntaxError] reachable with errors.As.
package lang

// Package expression resolves "{{ ... }}" interpolations against a
// structured execution context before every node invocation.
//
// Two concerns are kept separate, mirroring how the engine this package
// was adapted from splits template scanning from evaluation: Scan walks a
// string (or, recursively, an arbitrary JSON-like value) finding
// brace-depth-matched "{{ ... }}" spans, while Engine compiles and runs the
// expression text found inside each span through expr-lang/expr, which
// supplies the sandboxed evaluation the safety contract requires — no
// expression can reach arbitrary host code.
//
// A single bare "{{ expr }}" string returns the evaluated value with its
// native type; anything else (surrounding text, multiple spans) is
// interpolated into a string. Evaluation failures never abort a run — they
// are replaced inline by "[Expression Error: <message>]".
package expression

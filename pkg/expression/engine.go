package expression

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Context carries every value an expression may read, per spec.md §4.B.
type Context struct {
	JSON         map[string]interface{}   // $json — current item's payload
	Input        []map[string]interface{} // $input — full input sequence to the current node
	NodeOutputs  map[string]map[string]interface{} // node name -> last main-output item, for $node
	Env          map[string]string        // $env — process environment snapshot at run start
	ExecutionID  string
	Mode         string
	ItemIndex    int
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

func sanitizeNodeName(name string) string {
	return nonAlnum.ReplaceAllString(name, "_")
}

// Engine compiles and caches expr-lang programs, the same pattern the
// engine this package is modeled on uses, and evaluates every "{{ }}" span
// found by Scan under the safety contract: no panic, no host code, and a
// failure becomes an inline marker string rather than an aborted run.
type Engine struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

// New creates an expression Engine.
func New() *Engine {
	return &Engine{cache: make(map[string]*vm.Program)}
}

func (e *Engine) compile(exprText string, env map[string]interface{}) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[exprText]; ok {
		return p, nil
	}
	p, err := expr.Compile(exprText, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache[exprText] = p
	return p, nil
}

// EvaluateRaw compiles and runs a single expression body (without the
// surrounding "{{ }}") against ctx, returning its native value.
func (e *Engine) EvaluateRaw(exprText string, ctx *Context) (interface{}, error) {
	env := e.buildEnvironment(ctx)
	program, err := e.compile(exprText, env)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// Resolve implements the full §4.B contract for one value: strings are
// scanned for "{{ }}" spans and resolved (single-expression values keep
// their native type; otherwise the result is string-interpolated), and
// objects/arrays are walked recursively.
func (e *Engine) Resolve(value interface{}, ctx *Context) interface{} {
	switch v := value.(type) {
	case string:
		return e.resolveString(v, ctx)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = e.Resolve(val, ctx)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = e.Resolve(val, ctx)
		}
		return out
	default:
		return value
	}
}

func (e *Engine) resolveString(s string, ctx *Context) interface{} {
	if exprText, ok := IsSingleExpression(s); ok {
		val, err := e.EvaluateRaw(exprText, ctx)
		if err != nil {
			return errorMarker(err.Error())
		}
		return val
	}

	spans, err := Scan(s)
	if err != nil {
		return errorMarker(err.Error())
	}
	if len(spans) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp.Start])
		val, err := e.EvaluateRaw(sp.Expr, ctx)
		if err != nil {
			b.WriteString(errorMarker(err.Error()))
		} else {
			b.WriteString(stringify(val))
		}
		last = sp.End
	}
	b.WriteString(s[last:])
	return b.String()
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]interface{}, []interface{}:
		b, err := jsonMarshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// buildEnvironment exposes the context fields and the whitelisted helper
// functions spec.md §4.B names. No function here can execute host code or
// reach outside the supplied maps.
func (e *Engine) buildEnvironment(ctx *Context) map[string]interface{} {
	env := map[string]interface{}{}
	if ctx == nil {
		ctx = &Context{}
	}

	env["$json"] = ctx.JSON
	env["$input"] = ctx.Input
	env["$env"] = ctx.Env
	env["$execution"] = map[string]interface{}{
		"id":   ctx.ExecutionID,
		"mode": ctx.Mode,
	}
	env["$itemIndex"] = ctx.ItemIndex

	nodeEnv := make(map[string]interface{}, len(ctx.NodeOutputs)*2)
	for name, data := range ctx.NodeOutputs {
		view := map[string]interface{}{"json": data, "data": data}
		nodeEnv[name] = view
		nodeEnv[sanitizeNodeName(name)] = view
	}
	env["$node"] = nodeEnv

	addHelperFunctions(env)
	return env
}

func addHelperFunctions(env map[string]interface{}) {
	env["String"] = func(v interface{}) string { return stringify(v) }
	env["Number"] = func(v interface{}) float64 {
		f, _ := toFloat64(v)
		return f
	}
	env["Boolean"] = func(v interface{}) bool { return truthy(v) }
	env["parseInt"] = func(s string) interface{} {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	env["parseFloat"] = func(s string) interface{} {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	env["isNaN"] = func(v interface{}) bool {
		f, ok := toFloat64(v)
		return !ok || math.IsNaN(f)
	}
	env["isFinite"] = func(v interface{}) bool {
		f, ok := toFloat64(v)
		return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	env["JSON_stringify"] = func(v interface{}) string { return stringify(v) }
	env["JSON_parse"] = func(s string) interface{} {
		v, err := jsonUnmarshal(s)
		if err != nil {
			return nil
		}
		return v
	}

	env["upper"] = strings.ToUpper
	env["lower"] = strings.ToLower
	env["trim"] = strings.TrimSpace
	env["split"] = func(s, sep string) []string { return strings.Split(s, sep) }
	env["join"] = func(arr []interface{}, sep string) string {
		parts := make([]string, len(arr))
		for i, v := range arr {
			parts[i] = stringify(v)
		}
		return strings.Join(parts, sep)
	}
	env["includes"] = func(s, substr string) bool { return strings.Contains(s, substr) }
	env["replace"] = strings.ReplaceAll
	env["substring"] = func(s string, start, end int) string {
		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start >= end {
			return ""
		}
		return s[start:end]
	}
	env["length"] = func(v interface{}) int {
		switch val := v.(type) {
		case string:
			return len(val)
		case []interface{}:
			return len(val)
		case map[string]interface{}:
			return len(val)
		default:
			return 0
		}
	}

	env["first"] = func(arr []interface{}) interface{} {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	env["last"] = func(arr []interface{}) interface{} {
		if len(arr) == 0 {
			return nil
		}
		return arr[len(arr)-1]
	}
	env["at"] = func(arr []interface{}, idx int) interface{} {
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil
		}
		return arr[idx]
	}

	env["Math_abs"] = math.Abs
	env["Math_floor"] = math.Floor
	env["Math_ceil"] = math.Ceil
	env["Math_round"] = math.Round
	env["Math_max"] = math.Max
	env["Math_min"] = math.Min
	env["Math_pow"] = math.Pow
	env["Math_sqrt"] = math.Sqrt

	env["now"] = func() int64 { return time.Now().UnixMilli() }
	env["Date_now"] = func() int64 { return time.Now().UnixMilli() }

	env["typeof"] = func(v interface{}) string {
		switch v.(type) {
		case nil:
			return "undefined"
		case string:
			return "string"
		case bool:
			return "boolean"
		case float64, int, int64:
			return "number"
		case []interface{}:
			return "array"
		case map[string]interface{}:
			return "object"
		default:
			return "unknown"
		}
	}
	env["isArray"] = func(v interface{}) bool {
		_, ok := v.([]interface{})
		return ok
	}
	env["isEmpty"] = func(v interface{}) bool {
		switch val := v.(type) {
		case nil:
			return true
		case string:
			return val == ""
		case []interface{}:
			return len(val) == 0
		case map[string]interface{}:
			return len(val) == 0
		default:
			return false
		}
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case float64:
		return val != 0
	default:
		return true
	}
}

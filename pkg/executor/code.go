package executor

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dop251/goja"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// CodeExecutor is the sandboxed script node (spec.md §4.D "Script
// sandbox"). Scripts run in a fresh goja VM per invocation — no module
// loading, no filesystem or network access is ever wired into the
// runtime — bounded by a wall-clock timeout and a call-stack depth limit,
// both enforced directly on the VM. goja has no API to cap a VM's own heap,
// so the memory ceiling (config.CodeMemoryLimitBytes, spec.md §4.D/§9) is
// approximated by monitorCodeMemory sampling process-wide heap growth
// during the run; see DESIGN.md for the caveat this implies.
type CodeExecutor struct{}

func NewCodeExecutor() *CodeExecutor { return &CodeExecutor{} }

func (e *CodeExecutor) NodeType() string { return "code" }

func (e *CodeExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "code",
		DisplayName: "Code",
		InputCount:  1,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *CodeExecutor) Validate(node types.Node) error {
	script, _ := node.Parameters["script"].(string)
	if script == "" {
		return fmt.Errorf("code node %q missing script parameter", node.Name)
	}
	return nil
}

func (e *CodeExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	script, _ := node.Parameters["script"].(string)
	if script == "" {
		return nil, fmt.Errorf("code node %q missing script parameter", node.Name)
	}

	config := ctx.Config()
	timeout := time.Duration(config.CodeTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	memLimit := config.CodeMemoryLimitBytes

	vm := goja.New()
	vm.SetMaxCallStackDepth(256)

	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	inputJSON := make([]interface{}, len(items))
	for i, it := range items {
		inputJSON[i] = it.JSON
	}

	mustSet := func(name string, value interface{}) {
		if err := vm.Set(name, value); err != nil {
			panic(fmt.Errorf("sandbox setup: %w", err))
		}
	}

	var logLines []string
	mustSet("items", inputJSON)
	mustSet("$input", inputJSON)
	if len(items) > 0 {
		mustSet("$json", items[0].JSON)
	} else {
		mustSet("$json", map[string]interface{}{})
	}
	mustSet("$execution", map[string]interface{}{"id": ctx.ExecutionID(), "mode": string(ctx.Mode())})
	mustSet("getItem", func(idx int) interface{} {
		if idx < 0 || idx >= len(inputJSON) {
			return nil
		}
		return inputJSON[idx]
	})
	mustSet("newItem", func(json interface{}) map[string]interface{} {
		return map[string]interface{}{"json": json}
	})
	mustSet("log", func(args ...interface{}) {
		logLines = append(logLines, fmt.Sprint(args...))
	})

	done := make(chan struct{})
	var result goja.Value
	var runErr error

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("code node %q panicked: %v", node.Name, r)
			}
		}()
		result, runErr = vm.RunString(script)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var memExceeded chan struct{}
	if memLimit > 0 {
		memExceeded = make(chan struct{})
		stopMonitor := make(chan struct{})
		defer close(stopMonitor)
		go monitorCodeMemory(vm, memLimit, memExceeded, stopMonitor)
	}

	select {
	case <-done:
	case <-timer.C:
		vm.Interrupt("execution timed out")
		<-done
		return nil, fmt.Errorf("code node %q exceeded timeout of %s", node.Name, timeout)
	case <-memExceeded:
		vm.Interrupt("execution memory limit exceeded")
		<-done
		return nil, fmt.Errorf("code node %q exceeded memory limit of %d bytes", node.Name, memLimit)
	}

	if runErr != nil {
		return nil, fmt.Errorf("code node %q: %w", node.Name, runErr)
	}

	out, err := normalizeCodeResult(result.Export())
	if err != nil {
		return nil, fmt.Errorf("code node %q: %w", node.Name, err)
	}

	return Result{types.DefaultOutput: types.ItemsValue(out)}, nil
}

// normalizeCodeResult applies spec.md §4.D's return-value rule: a non-array
// is wrapped into a single item; an array of bare objects has each element
// wrapped into {json: element} unless it already carries a "json" key. A
// null or undefined result yields no items.
func normalizeCodeResult(v interface{}) (types.Items, error) {
	switch val := v.(type) {
	case nil:
		return types.Items{}, nil
	case []interface{}:
		out := make(types.Items, 0, len(val))
		for _, elem := range val {
			out = append(out, wrapCodeElement(elem))
		}
		return out, nil
	case map[string]interface{}:
		return types.Items{wrapCodeElement(val)}, nil
	default:
		return types.Items{types.NewItem(map[string]interface{}{"value": val})}, nil
	}
}

func wrapCodeElement(elem interface{}) types.Item {
	if m, ok := elem.(map[string]interface{}); ok {
		if json, hasJSON := m["json"].(map[string]interface{}); hasJSON {
			return types.Item{JSON: json}
		}
		return types.NewItem(m)
	}
	return types.NewItem(map[string]interface{}{"value": elem})
}

// monitorCodeMemory polls process heap growth against memLimit while a
// Code script runs and signals exceeded if it is crossed. This is an
// approximation, not a per-VM measurement: goja exposes no heap accounting
// of its own, so a script running concurrently with other heap-heavy work
// in the same process can trip the limit early, and a script allocating
// short-lived garbage the GC reclaims between samples can evade it. It
// stops as soon as stop is closed by the caller.
func monitorCodeMemory(vm *goja.Runtime, memLimit int64, exceeded chan<- struct{}, stop <-chan struct{}) {
	var baseline runtime.MemStats
	runtime.ReadMemStats(&baseline)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var cur runtime.MemStats
			runtime.ReadMemStats(&cur)
			if cur.Alloc > baseline.Alloc && cur.Alloc-baseline.Alloc > uint64(memLimit) {
				select {
				case exceeded <- struct{}{}:
				case <-stop:
				}
				return
			}
		}
	}
}

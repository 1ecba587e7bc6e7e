package script

import (
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

type tengoBackend struct {
	compiled *tengo.Compiled
	defined  map[Phase]bool
}

// loadTengo runs the source alone to learn which phase functions exist, then
// compiles it inside an init block followed by a dispatcher. The init block
// runs once, so top-level variables keep their values between callbacks.
func loadTengo(path string) (*tengoBackend, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	scan, err := compileTengo(src)
	if err != nil {
		return nil, err
	}
	if err := scan.Run(); err != nil {
		return nil, err
	}
	defined := make(map[Phase]bool)
	for _, p := range phases {
		if scan.IsDefined(string(p)) {
			defined[p] = true
		}
	}

	// The source starts on the first line so error positions match the file.
	var wrapped strings.Builder
	wrapped.WriteString("if __init { ")
	wrapped.Write(src)
	wrapped.WriteString("\n")
	for _, p := range phases {
		if defined[p] {
			fmt.Fprintf(&wrapped, "__fn_%s = %s\n", p, p)
		}
	}
	wrapped.WriteString("}\n")
	for _, p := range phases {
		if !defined[p] {
			continue
		}
		fmt.Fprintf(&wrapped, "if !__init && __phase == %q {\n", p)
		if p == Begin || p == PreSolve {
			fmt.Fprintf(&wrapped, "\t__r := __fn_%s(__arb)\n\tif !is_undefined(__r) { __result = __r }\n", p)
		} else {
			fmt.Fprintf(&wrapped, "\t__fn_%s(__arb)\n", p)
		}
		wrapped.WriteString("}\n")
	}

	compiled, err := compileTengo([]byte(wrapped.String()))
	if err != nil {
		return nil, err
	}
	if err := compiled.Run(); err != nil {
		return nil, err
	}
	if err := compiled.Set("__init", false); err != nil {
		return nil, err
	}
	return &tengoBackend{compiled: compiled, defined: defined}, nil
}

func compileTengo(src []byte) (*tengo.Compiled, error) {
	script := tengo.NewScript(src)
	_ = script.Add("__init", true)
	_ = script.Add("__phase", "")
	_ = script.Add("__arb", map[string]any{})
	_ = script.Add("__result", true)
	for _, p := range phases {
		_ = script.Add("__fn_"+string(p), nil)
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	return script.Compile()
}

func (b *tengoBackend) defines(p Phase) bool {
	return b.defined[p]
}

func (b *tengoBackend) call(p Phase, arb arbiterView) (bool, error) {
	if !b.defined[p] {
		return true, nil
	}
	if err := b.compiled.Set("__phase", string(p)); err != nil {
		return true, err
	}
	if err := b.compiled.Set("__arb", tengoArbiter(arb)); err != nil {
		return true, err
	}
	if err := b.compiled.Set("__result", true); err != nil {
		return true, err
	}
	if err := b.compiled.Run(); err != nil {
		return true, err
	}
	return b.compiled.Get("__result").Bool(), nil
}

func (b *tengoBackend) close() {}

func tengoArbiter(arb arbiterView) *tengo.ImmutableMap {
	values := map[string]tengo.Object{
		"type_a": &tengo.Int{Value: int64(arb.typeA)},
		"type_b": &tengo.Int{Value: int64(arb.typeB)},
		"normal": &tengo.ImmutableArray{Value: []tengo.Object{
			&tengo.Float{Value: arb.normal.X},
			&tengo.Float{Value: arb.normal.Y},
		}},
		"first_contact": tengoBool(arb.firstContact),
		"removal":       tengoBool(arb.removal),
		"count":         &tengo.Int{Value: int64(arb.count)},
	}
	values["remove_a"] = &tengo.UserFunction{Name: "remove_a", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return tengoBool(arb.removeA()), nil
	}}
	values["remove_b"] = &tengo.UserFunction{Name: "remove_b", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return tengoBool(arb.removeB()), nil
	}}
	return &tengo.ImmutableMap{Value: values}
}

func tengoBool(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

package script

import (
	lua "github.com/yuin/gopher-lua"
)

type luaBackend struct {
	vm  *lua.LState
	fns map[Phase]*lua.LFunction
}

func loadLua(path string) (*luaBackend, error) {
	vm := lua.NewState()
	if err := vm.DoFile(path); err != nil {
		vm.Close()
		return nil, err
	}
	b := &luaBackend{vm: vm, fns: make(map[Phase]*lua.LFunction)}
	for _, p := range phases {
		if fn, ok := vm.GetGlobal(string(p)).(*lua.LFunction); ok {
			b.fns[p] = fn
		}
	}
	return b, nil
}

func (b *luaBackend) defines(p Phase) bool {
	_, ok := b.fns[p]
	return ok
}

func (b *luaBackend) call(p Phase, arb arbiterView) (bool, error) {
	fn, ok := b.fns[p]
	if !ok {
		return true, nil
	}
	if err := b.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, b.arbiter(arb)); err != nil {
		return true, err
	}
	ret := b.vm.Get(-1)
	b.vm.Pop(1)
	if ret == lua.LNil {
		return true, nil
	}
	return lua.LVAsBool(ret), nil
}

func (b *luaBackend) close() {
	b.vm.Close()
}

func (b *luaBackend) arbiter(arb arbiterView) *lua.LTable {
	t := b.vm.NewTable()
	t.RawSetString("type_a", lua.LNumber(arb.typeA))
	t.RawSetString("type_b", lua.LNumber(arb.typeB))

	n := b.vm.NewTable()
	n.Append(lua.LNumber(arb.normal.X))
	n.Append(lua.LNumber(arb.normal.Y))
	t.RawSetString("normal", n)

	t.RawSetString("first_contact", lua.LBool(arb.firstContact))
	t.RawSetString("removal", lua.LBool(arb.removal))
	t.RawSetString("count", lua.LNumber(arb.count))
	t.RawSetString("remove_a", b.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(arb.removeA()))
		return 1
	}))
	t.RawSetString("remove_b", b.vm.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(arb.removeB()))
		return 1
	}))
	return t
}

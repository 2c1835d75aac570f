// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package script runs Starlark programs against a CPP bus handle. It is
// meant for control-plane automation: bring-up sequences, register pokes,
// and scripted diagnostics.
package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/cppbus/cpp"
)

// Run executes a Starlark program with the bus accessors of the handle
// predeclared. name labels the program in error positions.
//
// Predeclared for the script:
//
//	cpp_id(target, action, token, island=0)  -> packed CPP ID
//	readl(id, address) / writel(id, address, value)
//	readq(id, address) / writeq(id, address, value)
//	xpb_readl(address) / xpb_writel(address, value)
//	MODEL, INTERFACE, TARGET_MU, TARGET_CLS, ACTION_RW
func Run(c *cpp.Cpp, name string, src string) (err error) {
	thread := starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Println(msg)
		},
	}
	opts := syntax.FileOptions{}

	_, err = starlark.ExecFileOptions(&opts, &thread, name, src, predeclared(c))
	return
}

func predeclared(c *cpp.Cpp) starlark.StringDict {
	return starlark.StringDict{
		"cpp_id":     starlark.NewBuiltin("cpp_id", builtinCppId),
		"readl":      starlark.NewBuiltin("readl", builtinReadL(c)),
		"writel":     starlark.NewBuiltin("writel", builtinWriteL(c)),
		"readq":      starlark.NewBuiltin("readq", builtinReadQ(c)),
		"writeq":     starlark.NewBuiltin("writeq", builtinWriteQ(c)),
		"xpb_readl":  starlark.NewBuiltin("xpb_readl", builtinXpbReadL(c)),
		"xpb_writel": starlark.NewBuiltin("xpb_writel", builtinXpbWriteL(c)),

		"MODEL":      starlark.MakeUint64(uint64(c.Model())),
		"INTERFACE":  starlark.MakeUint64(uint64(c.Interface())),
		"TARGET_MU":  starlark.MakeInt(cpp.TARGET_MU),
		"TARGET_CLS": starlark.MakeInt(cpp.TARGET_CLS),
		"ACTION_RW":  starlark.MakeInt(cpp.ACTION_RW),
	}
}

type builtinFunc = func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

func builtinCppId(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var target, action, token, island int
	err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"target", &target, "action", &action, "token", &token, "island?", &island)
	if err != nil {
		return nil, err
	}
	return starlark.MakeUint64(uint64(cpp.MakeIslandID(target, action, token, island))), nil
}

func builtinReadL(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id, address uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id, "address", &address)
		if err != nil {
			return nil, err
		}
		value, err := c.ReadL(cpp.ID(id), address)
		if err != nil {
			return nil, err
		}
		return starlark.MakeUint64(uint64(value)), nil
	}
}

func builtinWriteL(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id, address, value uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"id", &id, "address", &address, "value", &value)
		if err != nil {
			return nil, err
		}
		err = c.WriteL(cpp.ID(id), address, uint32(value))
		if err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

func builtinReadQ(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id, address uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs, "id", &id, "address", &address)
		if err != nil {
			return nil, err
		}
		value, err := c.ReadQ(cpp.ID(id), address)
		if err != nil {
			return nil, err
		}
		return starlark.MakeUint64(value), nil
	}
}

func builtinWriteQ(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var id, address, value uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"id", &id, "address", &address, "value", &value)
		if err != nil {
			return nil, err
		}
		err = c.WriteQ(cpp.ID(id), address, value)
		if err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

func builtinXpbReadL(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var address uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs, "address", &address)
		if err != nil {
			return nil, err
		}
		value, err := c.XpbReadL(uint32(address))
		if err != nil {
			return nil, err
		}
		return starlark.MakeUint64(uint64(value)), nil
	}
}

func builtinXpbWriteL(c *cpp.Cpp) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var address, value uint64
		err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"address", &address, "value", &value)
		if err != nil {
			return nil, err
		}
		err = c.XpbWriteL(uint32(address), uint32(value))
		if err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

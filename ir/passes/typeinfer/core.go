package typeinfer

import "github.com/chances/wrenc/ir"

// fnInfo is the statically-known signature of a core-library method: the
// type every argument must have for the call to be provable, the return
// type, and the intrinsic the backend may lower the call to if both the
// receiver and every argument match. Mirrors TypeInferencePass::FnInfo.
type fnInfo struct {
	returnType *ir.Type
	argTypes   []*ir.Type
	intrinsic  ir.Intrinsic
}

// coreFunctionInfo mirrors the auto-generated GenGetCoreFunctionInfo the C++
// teacher builds from its bundled wren_core library source at compile time.
// This module has no such bundled core library to generate from, so this
// table is hand-authored, covering the arithmetic and comparison operators
// on Num that the spec's intrinsic lowering set names (spec §4.H): every
// receiver/signature pair exercised by the worked examples in spec §8
// resolves here, everything else falls through to an unknown (nil) return
// type, same as the generated lookup returning "not matched".
func coreFunctionInfo(reg *Registry) map[string]fnInfo {
	num := reg.Num()
	boolType := reg.SysClass("ObjBool")

	entry := func(sig string, intrinsic ir.Intrinsic, ret *ir.Type) (string, fnInfo) {
		return "ObjNumClass|" + sig, fnInfo{returnType: ret, argTypes: []*ir.Type{num}, intrinsic: intrinsic}
	}

	table := map[string]fnInfo{}
	add := func(sig string, intrinsic ir.Intrinsic, ret *ir.Type) {
		k, v := entry(sig, intrinsic, ret)
		table[k] = v
	}

	add("+(_)", ir.IntrinsicNumAdd, num)
	add("-(_)", ir.IntrinsicNumSub, num)
	add("*(_)", ir.IntrinsicNumMul, num)
	add("/(_)", ir.IntrinsicNumDiv, num)
	add("<(_)", ir.IntrinsicNumLt, boolType)
	add(">(_)", ir.IntrinsicNumGt, boolType)
	add("<=(_)", ir.IntrinsicNumLe, boolType)
	add(">=(_)", ir.IntrinsicNumGe, boolType)
	add("==(_)", ir.IntrinsicNumEq, boolType)

	return table
}

package backend

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Package-private object IDs for the stackmap wire format (spec §4.I item
// 3). Grounded on original_source/common/StackMapDescription.{h,cpp}'s
// StackMapDescription::ObjectID enum, extended with objectName since this
// spec's FUNCTION record is followed by a separate name record rather than
// embedding the name inline.
type objectID uint16

const (
	objInvalid objectID = iota
	objEndOfStackMap
	objFunction
	objStatepoint
	objObjectName
)

const stackMapMajor = 1
const stackMapMinor = 0

type mapHeader struct {
	Major    uint16
	Minor    uint16
	Flags    uint16
	Reserved uint16
}

// recordHeader is the header preceding every object's payload, repeated
// verbatim from original_source's MapObjectRepr (renamed to match this
// module's field-naming conventions). PayloadSize excludes this header.
type recordHeader struct {
	ID          objectID
	PayloadSize uint16
	Flags       uint16
	ForObject   uint16
}

// StatepointEntry is one GC-visiting call site: its return-address offset
// from the start of its function, and the stack-slot indices (byte offset
// / 8) holding live Values at that point (spec §4.I item 3).
type StatepointEntry struct {
	InstructionOffset uint32
	LiveSlots         []uint8
}

// FunctionEntry is one compiled Fn's worth of statepoints, as the backend
// would emit them after lowering.
type FunctionEntry struct {
	Name string

	// FunctionPointerReloc is an opaque correlation key resolved by the
	// object-file linker at load time (e.g. a symbol table index); this
	// module has no linker of its own, so it is carried through the
	// stackmap unchanged and resolved later via ResolveAddresses.
	FunctionPointerReloc uint64

	StackSize   uint32
	Statepoints []StatepointEntry
}

// Builder accumulates FunctionEntry values and serializes them into the
// module-private stackmap section described by spec §4.I item 3.
type Builder struct {
	functions []FunctionEntry
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) AddFunction(fn FunctionEntry) {
	b.functions = append(b.functions, fn)
}

// Build serializes the accumulated functions into the little-endian,
// 8-byte-aligned layout spec §4.I item 3 mandates: a header, then one
// FUNCTION record (immediately followed by an OBJECT_NAME record) and its
// STATEPOINT records per function, then an END_OF_STACK_MAP terminator.
func (b *Builder) Build() ([]byte, error) {
	buf := &bytes.Buffer{}

	if err := binary.Write(buf, binary.LittleEndian, mapHeader{Major: stackMapMajor, Minor: stackMapMinor}); err != nil {
		return nil, err
	}

	for _, fn := range b.functions {
		if err := writeFunctionRecord(buf, fn); err != nil {
			return nil, fmt.Errorf("backend: writing function record for %q: %w", fn.Name, err)
		}
		if err := writeObjectNameRecord(buf, fn.Name); err != nil {
			return nil, fmt.Errorf("backend: writing name record for %q: %w", fn.Name, err)
		}
		for _, sp := range fn.Statepoints {
			if err := writeStatepointRecord(buf, sp); err != nil {
				return nil, fmt.Errorf("backend: writing statepoint in %q: %w", fn.Name, err)
			}
		}
	}

	if err := writeRecord(buf, recordHeader{ID: objEndOfStackMap}, nil); err != nil {
		return nil, err
	}

	return padTo8(buf.Bytes()), nil
}

func padTo8(data []byte) []byte {
	if rem := len(data) % 8; rem != 0 {
		data = append(data, make([]byte, 8-rem)...)
	}
	return data
}

func writeRecord(buf *bytes.Buffer, hdr recordHeader, payload []byte) error {
	hdr.PayloadSize = uint16(len(payload))
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return err
	}
	_, err := buf.Write(payload)
	return err
}

func writeFunctionRecord(buf *bytes.Buffer, fn FunctionEntry) error {
	payload := &bytes.Buffer{}
	if err := binary.Write(payload, binary.LittleEndian, fn.FunctionPointerReloc); err != nil {
		return err
	}
	if err := binary.Write(payload, binary.LittleEndian, uint32(len(fn.Statepoints))); err != nil {
		return err
	}
	if err := binary.Write(payload, binary.LittleEndian, fn.StackSize); err != nil {
		return err
	}
	return writeRecord(buf, recordHeader{ID: objFunction}, payload.Bytes())
}

func writeObjectNameRecord(buf *bytes.Buffer, name string) error {
	return writeRecord(buf, recordHeader{ID: objObjectName}, []byte(name))
}

func writeStatepointRecord(buf *bytes.Buffer, sp StatepointEntry) error {
	payload := &bytes.Buffer{}
	if err := binary.Write(payload, binary.LittleEndian, sp.InstructionOffset); err != nil {
		return err
	}
	payload.Write(sp.LiveSlots)
	return writeRecord(buf, recordHeader{ID: objStatepoint, ForObject: uint16(len(sp.LiveSlots))}, payload.Bytes())
}

// DecodedFunction is one FUNCTION record's contents after parsing, with its
// name recovered from the following OBJECT_NAME record.
type DecodedFunction struct {
	Name                 string
	FunctionPointerReloc uint64
	StackSize            uint32
	Statepoints          []StatepointEntry

	// address is filled in by ResolveAddresses; zero until then.
	address uint64
}

// StackMap is a parsed stackmap section, ready for GC-time lookups (spec
// §4.L item 2). Grounded on
// original_source/common/StackMapDescription.cpp's single-pass decode
// loop and its sort-then-binary-search Lookup.
type StackMap struct {
	Functions []*DecodedFunction

	// sortedByAddr is populated by ResolveAddresses: every statepoint,
	// flattened and sorted by absolute instruction address, mirroring
	// m_statepoints in the C++ original.
	sortedByAddr []resolvedStatepoint
}

type resolvedStatepoint struct {
	addr     uint64
	fn       *DecodedFunction
	offsets  []uint8
}

// Decode parses a byte slice produced by Builder.Build.
func Decode(data []byte) (*StackMap, error) {
	r := bytes.NewReader(data)

	var hdr mapHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("backend: reading stackmap header: %w", err)
	}
	if hdr.Major != stackMapMajor {
		return nil, fmt.Errorf("backend: unsupported stackmap major version %d", hdr.Major)
	}

	sm := &StackMap{}
	var current *DecodedFunction

	for {
		var rh recordHeader
		if err := binary.Read(r, binary.LittleEndian, &rh); err != nil {
			return nil, fmt.Errorf("backend: reading record header: %w", err)
		}

		payload := make([]byte, rh.PayloadSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("backend: reading record payload: %w", err)
		}

		switch rh.ID {
		case objEndOfStackMap:
			return sm, nil

		case objFunction:
			pr := bytes.NewReader(payload)
			fn := &DecodedFunction{}
			if err := binary.Read(pr, binary.LittleEndian, &fn.FunctionPointerReloc); err != nil {
				return nil, err
			}
			var recordCount uint32
			if err := binary.Read(pr, binary.LittleEndian, &recordCount); err != nil {
				return nil, err
			}
			if err := binary.Read(pr, binary.LittleEndian, &fn.StackSize); err != nil {
				return nil, err
			}
			sm.Functions = append(sm.Functions, fn)
			current = fn

		case objObjectName:
			if current == nil {
				return nil, fmt.Errorf("backend: OBJECT_NAME record with no preceding FUNCTION record")
			}
			current.Name = string(payload)

		case objStatepoint:
			if current == nil {
				return nil, fmt.Errorf("backend: STATEPOINT record with no preceding FUNCTION record")
			}
			pr := bytes.NewReader(payload)
			var sp StatepointEntry
			if err := binary.Read(pr, binary.LittleEndian, &sp.InstructionOffset); err != nil {
				return nil, err
			}
			sp.LiveSlots = append([]byte(nil), payload[4:]...)
			current.Statepoints = append(current.Statepoints, sp)

		default:
			return nil, fmt.Errorf("backend: invalid stackmap object id %d", rh.ID)
		}
	}
}

// ResolveAddresses supplies the absolute load address for every function
// named in the stackmap (keyed by FunctionEntry.Name, the module's symbol
// table entry once linked) and builds the sorted-by-address index Lookup
// needs. Must be called once after Decode, before any Lookup.
func (sm *StackMap) ResolveAddresses(addrs map[string]uint64) error {
	sm.sortedByAddr = sm.sortedByAddr[:0]
	for _, fn := range sm.Functions {
		addr, ok := addrs[fn.Name]
		if !ok {
			return fmt.Errorf("backend: no load address supplied for function %q", fn.Name)
		}
		fn.address = addr
		for _, sp := range fn.Statepoints {
			sm.sortedByAddr = append(sm.sortedByAddr, resolvedStatepoint{
				addr:    addr + uint64(sp.InstructionOffset),
				fn:      fn,
				offsets: sp.LiveSlots,
			})
		}
	}
	sort.Slice(sm.sortedByAddr, func(i, j int) bool { return sm.sortedByAddr[i].addr < sm.sortedByAddr[j].addr })
	return nil
}

// Lookup finds the statepoint exactly at the given absolute instruction
// address, as the GC does when it recovers a frame's instruction pointer
// during stack walking (spec §4.L item 2). It returns ok=false if no
// statepoint was recorded there (a GC-leaf call site, or not a call site
// at all).
func (sm *StackMap) Lookup(addr uint64) (offsets []uint8, ok bool) {
	i := sort.Search(len(sm.sortedByAddr), func(i int) bool { return sm.sortedByAddr[i].addr >= addr })
	if i == len(sm.sortedByAddr) || sm.sortedByAddr[i].addr != addr {
		return nil, false
	}
	return sm.sortedByAddr[i].offsets, true
}

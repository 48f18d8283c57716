// Package classdesc decodes and encodes the class-descriptor byte stream
// the backend emits per class (spec §6): a sequence of variable-sized
// commands terminated by END, consumed at runtime by init_class (spec
// §4.J) to install a class's methods, fields and attributes. Grounded on
// original_source/common/ClassDescription.{h,cpp}'s single-pass
// Command-dispatch decode loop, adapted from raw-pointer fields (this is
// an in-memory structure in the C++ original, built by a linker that can
// place real `const char*` and function pointers) to explicit
// length-prefixed strings and symbol-name references, since this module
// has no linker to resolve such pointers at load time.
package classdesc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Command is one class-descriptor instruction's opcode (spec §6's table).
type Command uint32

const (
	CmdEnd               Command = 0
	CmdAddMethod         Command = 1
	CmdAddField          Command = 2
	CmdMarkSystemClass   Command = 3
	CmdMarkForeignClass  Command = 4
	CmdAddAttributeGroup Command = 5
)

// Flags carried in ADD_METHOD's command header (spec §6).
const (
	FlagStatic  uint32 = 1 << 0
	FlagForeign uint32 = 1 << 1
)

// AttrType is an attribute payload's value kind (spec §6 ADD_ATTRIBUTE_GROUP).
type AttrType uint32

const (
	AttrValue   AttrType = 0
	AttrBoolean AttrType = 1
	AttrString  AttrType = 2
)

// MethodDecl is one ADD_METHOD command's payload.
type MethodDecl struct {
	Signature  string
	FuncSymbol string // the backend's symbol name for the function, resolved at link time
	IsStatic   bool
	IsForeign  bool
}

// FieldDecl is one ADD_FIELD command's payload.
type FieldDecl struct {
	Name string
}

// AttributeItem is one entry in an ADD_ATTRIBUTE_GROUP's content array.
type AttributeItem struct {
	Name    string
	Type    AttrType
	Payload uint64 // a raw Value bit pattern, a boolean (0/1), or unused for strings
	Str     string // populated when Type == AttrString
}

// AttributeGroup is one ADD_ATTRIBUTE_GROUP command's payload: a named
// group of attributes attached either to the class itself
// (MethodIndex == -1) or to one of its methods by index.
type AttributeGroup struct {
	Group       string
	MethodIndex int32
	Items       []AttributeItem
}

// ClassDescription is the fully-decoded contents of one class's byte
// stream: everything init_class needs to install methods, fields and
// attributes (spec §4.J, §6).
type ClassDescription struct {
	IsSystemClass bool
	IsForeignClass bool
	Methods        []MethodDecl
	Fields         []FieldDecl
	Attributes     []AttributeGroup
}

// commandHeader precedes every command's body; spec §6: "{u32 id, u32 flags}".
type commandHeader struct {
	ID    Command
	Flags uint32
}

// Decode parses a byte stream produced by Builder.Build (or, semantically, by a
// real backend), terminated by a CmdEnd command.
func Decode(data []byte) (*ClassDescription, error) {
	r := bytes.NewReader(data)
	desc := &ClassDescription{}

	for {
		var hdr commandHeader
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return nil, fmt.Errorf("classdesc: reading command header: %w", err)
		}

		switch hdr.ID {
		case CmdEnd:
			return desc, nil

		case CmdAddMethod:
			sig, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("classdesc: ADD_METHOD signature: %w", err)
			}
			fn, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("classdesc: ADD_METHOD function symbol: %w", err)
			}
			desc.Methods = append(desc.Methods, MethodDecl{
				Signature:  sig,
				FuncSymbol: fn,
				IsStatic:   hdr.Flags&FlagStatic != 0,
				IsForeign:  hdr.Flags&FlagForeign != 0,
			})

		case CmdAddField:
			name, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("classdesc: ADD_FIELD name: %w", err)
			}
			desc.Fields = append(desc.Fields, FieldDecl{Name: name})

		case CmdMarkSystemClass:
			desc.IsSystemClass = true

		case CmdMarkForeignClass:
			desc.IsForeignClass = true

		case CmdAddAttributeGroup:
			group, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("classdesc: ADD_ATTRIBUTE_GROUP group name: %w", err)
			}
			var methodIndex int32
			if err := binary.Read(r, binary.LittleEndian, &methodIndex); err != nil {
				return nil, fmt.Errorf("classdesc: ADD_ATTRIBUTE_GROUP method index: %w", err)
			}
			var count int32
			if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
				return nil, fmt.Errorf("classdesc: ADD_ATTRIBUTE_GROUP count: %w", err)
			}

			items := make([]AttributeItem, 0, count)
			for i := int32(0); i < count; i++ {
				name, err := readString(r)
				if err != nil {
					return nil, fmt.Errorf("classdesc: attribute item name: %w", err)
				}
				var typ AttrType
				if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
					return nil, fmt.Errorf("classdesc: attribute item type: %w", err)
				}
				item := AttributeItem{Name: name, Type: typ}
				switch typ {
				case AttrString:
					s, err := readString(r)
					if err != nil {
						return nil, fmt.Errorf("classdesc: attribute string payload: %w", err)
					}
					item.Str = s
				case AttrValue, AttrBoolean:
					if err := binary.Read(r, binary.LittleEndian, &item.Payload); err != nil {
						return nil, fmt.Errorf("classdesc: attribute payload: %w", err)
					}
				default:
					return nil, fmt.Errorf("classdesc: invalid attribute type %d", typ)
				}
				items = append(items, item)
			}

			desc.Attributes = append(desc.Attributes, AttributeGroup{
				Group:       group,
				MethodIndex: methodIndex,
				Items:       items,
			})

		default:
			return nil, fmt.Errorf("classdesc: invalid command id %d", hdr.ID)
		}
	}
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

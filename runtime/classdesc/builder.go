package classdesc

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles a class-descriptor byte stream, the encoder side of
// [Decode]. A real backend emits this directly during code generation;
// Builder exists so this module's own tests (and any future in-process
// bootstrapping of core classes) can round-trip without a real backend.
type Builder struct {
	buf bytes.Buffer
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) writeHeader(cmd Command, flags uint32) {
	binary.Write(&b.buf, binary.LittleEndian, commandHeader{ID: cmd, Flags: flags})
}

func (b *Builder) writeString(s string) {
	binary.Write(&b.buf, binary.LittleEndian, uint32(len(s)))
	b.buf.WriteString(s)
}

// AddMethod appends an ADD_METHOD command.
func (b *Builder) AddMethod(signature, funcSymbol string, isStatic, isForeign bool) *Builder {
	var flags uint32
	if isStatic {
		flags |= FlagStatic
	}
	if isForeign {
		flags |= FlagForeign
	}
	b.writeHeader(CmdAddMethod, flags)
	b.writeString(signature)
	b.writeString(funcSymbol)
	return b
}

// AddField appends an ADD_FIELD command.
func (b *Builder) AddField(name string) *Builder {
	b.writeHeader(CmdAddField, 0)
	b.writeString(name)
	return b
}

// MarkSystemClass appends a MARK_SYSTEM_CLASS command.
func (b *Builder) MarkSystemClass() *Builder {
	b.writeHeader(CmdMarkSystemClass, 0)
	return b
}

// MarkForeignClass appends a MARK_FOREIGN_CLASS command.
func (b *Builder) MarkForeignClass() *Builder {
	b.writeHeader(CmdMarkForeignClass, 0)
	return b
}

// AddAttributeGroup appends an ADD_ATTRIBUTE_GROUP command. methodIndex
// should be -1 for a class-level group.
func (b *Builder) AddAttributeGroup(group string, methodIndex int32, items []AttributeItem) *Builder {
	b.writeHeader(CmdAddAttributeGroup, 0)
	b.writeString(group)
	binary.Write(&b.buf, binary.LittleEndian, methodIndex)
	binary.Write(&b.buf, binary.LittleEndian, int32(len(items)))
	for _, item := range items {
		b.writeString(item.Name)
		binary.Write(&b.buf, binary.LittleEndian, item.Type)
		switch item.Type {
		case AttrString:
			b.writeString(item.Str)
		default:
			binary.Write(&b.buf, binary.LittleEndian, item.Payload)
		}
	}
	return b
}

// Build terminates the stream with END and returns the encoded bytes.
func (b *Builder) Build() []byte {
	b.writeHeader(CmdEnd, 0)
	return append([]byte(nil), b.buf.Bytes()...)
}

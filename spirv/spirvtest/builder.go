// Package spirvtest assembles small SPIR-V modules for tests. Only the
// declarations needed for reflection are emitted; the modules carry no
// function bodies and are not valid input for a driver.
package spirvtest

import (
	"encoding/binary"

	"dynamik/spirv"
)

// Field is one member of a struct declared with Builder.Struct.
type Field struct {
	Name   string
	Type   uint32
	Offset uint32
}

// Builder emits instructions in the order the methods are called. Types and
// constants must be declared before they are referenced, as in a real module.
type Builder struct {
	next  uint32
	words []uint32

	uint32Type uint32
}

func New() *Builder {
	return &Builder{next: 1}
}

// ID reserves a fresh result id.
func (b *Builder) ID() uint32 {
	id := b.next
	b.next++
	return id
}

func (b *Builder) emit(op spirv.Op, operands ...uint32) {
	b.words = append(b.words, uint32(len(operands)+1)<<16|uint32(op))
	b.words = append(b.words, operands...)
}

func encodeString(s string) []uint32 {
	raw := append([]byte(s), 0)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out
}

func (b *Builder) Name(id uint32, name string) {
	b.emit(spirv.OpName, append([]uint32{id}, encodeString(name)...)...)
}

func (b *Builder) MemberName(id, member uint32, name string) {
	b.emit(spirv.OpMemberName, append([]uint32{id, member}, encodeString(name)...)...)
}

func (b *Builder) Decorate(id uint32, d spirv.Decoration, literals ...uint32) {
	b.emit(spirv.OpDecorate, append([]uint32{id, uint32(d)}, literals...)...)
}

func (b *Builder) MemberDecorate(id, member uint32, d spirv.Decoration, literals ...uint32) {
	b.emit(spirv.OpMemberDecorate, append([]uint32{id, member, uint32(d)}, literals...)...)
}

func (b *Builder) EntryPoint(model spirv.ExecutionModel, name string, iface ...uint32) {
	fn := b.ID()
	ops := append([]uint32{uint32(model), fn}, encodeString(name)...)
	b.emit(spirv.OpEntryPoint, append(ops, iface...)...)
}

func (b *Builder) TypeFloat(width uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeFloat, id, width)
	return id
}

func (b *Builder) TypeInt(width uint32, signed bool) uint32 {
	id := b.ID()
	var s uint32
	if signed {
		s = 1
	}
	b.emit(spirv.OpTypeInt, id, width, s)
	return id
}

func (b *Builder) TypeVector(elem, n uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeVector, id, elem, n)
	return id
}

func (b *Builder) TypeMatrix(column, n uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeMatrix, id, column, n)
	return id
}

// TypeArray declares a sized array, emitting the length constant first.
func (b *Builder) TypeArray(elem, length uint32) uint32 {
	if b.uint32Type == 0 {
		b.uint32Type = b.TypeInt(32, false)
	}
	c := b.ID()
	b.emit(spirv.OpConstant, b.uint32Type, c, length)
	id := b.ID()
	b.emit(spirv.OpTypeArray, id, elem, c)
	return id
}

func (b *Builder) TypeRuntimeArray(elem uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeRuntimeArray, id, elem)
	return id
}

// TypeImage declares an image; sampled is 1 for sampled images and 2 for
// storage images.
func (b *Builder) TypeImage(sampledType uint32, dim spirv.Dim, arrayed bool, sampled uint32) uint32 {
	id := b.ID()
	var a uint32
	if arrayed {
		a = 1
	}
	b.emit(spirv.OpTypeImage, id, sampledType, uint32(dim), 0, a, 0, sampled, 0)
	return id
}

func (b *Builder) TypeSampler() uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeSampler, id)
	return id
}

func (b *Builder) TypeSampledImage(image uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeSampledImage, id, image)
	return id
}

func (b *Builder) TypeAccelerationStructure() uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeAccelerationStructureKHR, id)
	return id
}

func (b *Builder) TypeStruct(members ...uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypeStruct, append([]uint32{id}, members...)...)
	return id
}

// Struct declares a named struct with member names and offsets.
func (b *Builder) Struct(name string, fields ...Field) uint32 {
	types := make([]uint32, len(fields))
	for i, f := range fields {
		types[i] = f.Type
	}
	id := b.TypeStruct(types...)
	b.Name(id, name)
	for i, f := range fields {
		b.MemberName(id, uint32(i), f.Name)
		b.MemberDecorate(id, uint32(i), spirv.DecorationOffset, f.Offset)
	}
	return id
}

func (b *Builder) TypePointer(sc spirv.StorageClass, elem uint32) uint32 {
	id := b.ID()
	b.emit(spirv.OpTypePointer, id, uint32(sc), elem)
	return id
}

// Variable declares a module scope variable of a pointer to typ.
func (b *Builder) Variable(sc spirv.StorageClass, typ uint32) uint32 {
	ptr := b.TypePointer(sc, typ)
	id := b.ID()
	b.emit(spirv.OpVariable, ptr, id, uint32(sc))
	return id
}

// Resource declares a named descriptor variable at set 0.
func (b *Builder) Resource(name string, sc spirv.StorageClass, typ, binding uint32) uint32 {
	v := b.Variable(sc, typ)
	b.Name(v, name)
	b.Decorate(v, spirv.DecorationDescriptorSet, 0)
	b.Decorate(v, spirv.DecorationBinding, binding)
	return v
}

// Interface declares a named stage input or output at a location.
func (b *Builder) Interface(name string, sc spirv.StorageClass, typ, location uint32) uint32 {
	v := b.Variable(sc, typ)
	b.Name(v, name)
	b.Decorate(v, spirv.DecorationLocation, location)
	return v
}

// Words returns the module with its header.
func (b *Builder) Words() []uint32 {
	out := []uint32{spirv.Magic, 0x00010000, 0, b.next, 0}
	return append(out, b.words...)
}

// Bytes returns the module as a little endian byte stream, the layout of a
// compiled .spv file.
func (b *Builder) Bytes() []byte {
	words := b.Words()
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

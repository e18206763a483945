package spirv

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidMagic = errors.New("spirv: invalid magic number")
	ErrTruncated    = errors.New("spirv: truncated module")
	ErrMalformed    = errors.New("spirv: malformed instruction")
)

// TypeKind classifies a declared type.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindVector
	KindMatrix
	KindImage
	KindSampler
	KindSampledImage
	KindArray
	KindRuntimeArray
	KindStruct
	KindPointer
	KindAccelerationStructure
)

// Type is a decoded OpType* instruction. Elem refers to the component type of
// vectors, the column type of matrices, the element type of arrays, the
// pointee of pointers and the image of sampled images.
type Type struct {
	ID      uint32
	Kind    TypeKind
	Width   uint32
	Signed  bool
	Elem    uint32
	Count   uint32
	Members []uint32

	StorageClass StorageClass

	Dim     Dim
	Arrayed bool
	Sampled uint32
}

// Variable is a module scope OpVariable.
type Variable struct {
	ID           uint32
	Type         uint32
	StorageClass StorageClass
}

// EntryPoint is a decoded OpEntryPoint.
type EntryPoint struct {
	Model     ExecutionModel
	ID        uint32
	Name      string
	Interface []uint32
}

type decorationSet map[Decoration][]uint32

// Module holds the declarations of a parsed SPIR-V binary.
type Module struct {
	Version   uint32
	Generator uint32
	Bound     uint32

	EntryPoints []EntryPoint
	Variables   []Variable

	types             map[uint32]*Type
	constants         map[uint32]uint32
	names             map[uint32]string
	memberNames       map[uint32]map[uint32]string
	decorations       map[uint32]decorationSet
	memberDecorations map[uint32]map[uint32]decorationSet
}

// Parse decodes words as a SPIR-V module. The words are expected in host
// (little endian) order, as produced by glslc and glslangValidator.
func Parse(words []uint32) (*Module, error) {
	if len(words) < HeaderWords {
		return nil, errors.Wrapf(ErrTruncated, "header needs %d words, got %d", HeaderWords, len(words))
	}
	if words[0] != Magic {
		return nil, errors.Wrapf(ErrInvalidMagic, "got 0x%08x", words[0])
	}
	m := &Module{
		Version:           words[1],
		Generator:         words[2],
		Bound:             words[3],
		types:             make(map[uint32]*Type),
		constants:         make(map[uint32]uint32),
		names:             make(map[uint32]string),
		memberNames:       make(map[uint32]map[uint32]string),
		decorations:       make(map[uint32]decorationSet),
		memberDecorations: make(map[uint32]map[uint32]decorationSet),
	}

	for pc := HeaderWords; pc < len(words); {
		count := int(words[pc] >> 16)
		op := Op(words[pc] & 0xffff)
		if count == 0 || pc+count > len(words) {
			return nil, errors.Wrapf(ErrTruncated, "op %d at word %d claims %d words", op, pc, count)
		}
		if err := m.decode(op, words[pc+1:pc+count]); err != nil {
			return nil, errors.Wrapf(err, "op %d at word %d", op, pc)
		}
		pc += count
	}
	if err := m.validateTypes(); err != nil {
		return nil, err
	}
	return m, nil
}

// validateTypes rejects type ids outside the module bound and type graphs
// that refer back to themselves. Pointers may legally form cycles through
// forward declarations, so only non-pointer edges are followed.
func (m *Module) validateTypes() error {
	const (
		visiting = iota + 1
		done
	)
	state := make(map[uint32]int, len(m.types))
	var visit func(id uint32) error
	visit = func(id uint32) error {
		t, ok := m.types[id]
		if !ok {
			return nil
		}
		switch state[id] {
		case visiting:
			return errors.Wrapf(ErrMalformed, "type %d refers to itself", id)
		case done:
			return nil
		}
		state[id] = visiting
		if t.Kind != KindPointer && t.Elem != 0 {
			if err := visit(t.Elem); err != nil {
				return err
			}
		}
		for _, member := range t.Members {
			if err := visit(member); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for id := range m.types {
		if m.Bound > 0 && id >= m.Bound {
			return errors.Wrapf(ErrMalformed, "type id %d outside bound %d", id, m.Bound)
		}
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) decode(op Op, args []uint32) error {
	need := func(n int) error {
		if len(args) < n {
			return errors.Wrapf(ErrMalformed, "want at least %d operands, got %d", n, len(args))
		}
		return nil
	}

	switch op {
	case OpName:
		if err := need(2); err != nil {
			return err
		}
		m.names[args[0]], _ = decodeString(args[1:])
	case OpMemberName:
		if err := need(3); err != nil {
			return err
		}
		members, ok := m.memberNames[args[0]]
		if !ok {
			members = make(map[uint32]string)
			m.memberNames[args[0]] = members
		}
		members[args[1]], _ = decodeString(args[2:])
	case OpEntryPoint:
		if err := need(3); err != nil {
			return err
		}
		name, used := decodeString(args[2:])
		ep := EntryPoint{Model: ExecutionModel(args[0]), ID: args[1], Name: name}
		ep.Interface = append(ep.Interface, args[2+used:]...)
		m.EntryPoints = append(m.EntryPoints, ep)
	case OpDecorate:
		if err := need(2); err != nil {
			return err
		}
		set, ok := m.decorations[args[0]]
		if !ok {
			set = make(decorationSet)
			m.decorations[args[0]] = set
		}
		set[Decoration(args[1])] = append([]uint32(nil), args[2:]...)
	case OpMemberDecorate:
		if err := need(3); err != nil {
			return err
		}
		members, ok := m.memberDecorations[args[0]]
		if !ok {
			members = make(map[uint32]decorationSet)
			m.memberDecorations[args[0]] = members
		}
		set, ok := members[args[1]]
		if !ok {
			set = make(decorationSet)
			members[args[1]] = set
		}
		set[Decoration(args[2])] = append([]uint32(nil), args[3:]...)
	case OpTypeVoid:
		return m.addType(args, 1, func(t *Type) { t.Kind = KindVoid })
	case OpTypeBool:
		return m.addType(args, 1, func(t *Type) { t.Kind = KindBool; t.Width = 32 })
	case OpTypeInt:
		return m.addType(args, 3, func(t *Type) {
			t.Kind = KindInt
			t.Width = args[1]
			t.Signed = args[2] != 0
		})
	case OpTypeFloat:
		return m.addType(args, 2, func(t *Type) { t.Kind = KindFloat; t.Width = args[1] })
	case OpTypeVector:
		return m.addType(args, 3, func(t *Type) { t.Kind = KindVector; t.Elem = args[1]; t.Count = args[2] })
	case OpTypeMatrix:
		return m.addType(args, 3, func(t *Type) { t.Kind = KindMatrix; t.Elem = args[1]; t.Count = args[2] })
	case OpTypeImage:
		return m.addType(args, 8, func(t *Type) {
			t.Kind = KindImage
			t.Elem = args[1]
			t.Dim = Dim(args[2])
			t.Arrayed = args[4] != 0
			t.Sampled = args[6]
		})
	case OpTypeSampler:
		return m.addType(args, 1, func(t *Type) { t.Kind = KindSampler })
	case OpTypeSampledImage:
		return m.addType(args, 2, func(t *Type) { t.Kind = KindSampledImage; t.Elem = args[1] })
	case OpTypeArray:
		return m.addType(args, 3, func(t *Type) {
			t.Kind = KindArray
			t.Elem = args[1]
			// array lengths are constant ids, constants always precede their use
			t.Count = m.constants[args[2]]
		})
	case OpTypeRuntimeArray:
		return m.addType(args, 2, func(t *Type) { t.Kind = KindRuntimeArray; t.Elem = args[1] })
	case OpTypeStruct:
		return m.addType(args, 1, func(t *Type) {
			t.Kind = KindStruct
			t.Members = append([]uint32(nil), args[1:]...)
		})
	case OpTypePointer:
		return m.addType(args, 3, func(t *Type) {
			t.Kind = KindPointer
			t.StorageClass = StorageClass(args[1])
			t.Elem = args[2]
		})
	case OpTypeAccelerationStructureKHR:
		return m.addType(args, 1, func(t *Type) { t.Kind = KindAccelerationStructure })
	case OpConstant:
		if err := need(3); err != nil {
			return err
		}
		m.constants[args[1]] = args[2]
	case OpVariable:
		if err := need(3); err != nil {
			return err
		}
		sc := StorageClass(args[2])
		if sc == storageClassFunction {
			return nil
		}
		m.Variables = append(m.Variables, Variable{ID: args[1], Type: args[0], StorageClass: sc})
	}
	return nil
}

const storageClassFunction StorageClass = 7

func (m *Module) addType(args []uint32, min int, fill func(t *Type)) error {
	if len(args) < min {
		return errors.Wrapf(ErrMalformed, "type declaration wants %d operands, got %d", min, len(args))
	}
	t := &Type{ID: args[0]}
	fill(t)
	m.types[t.ID] = t
	return nil
}

// decodeString reads a nul terminated literal string and reports how many
// words it occupied.
func decodeString(words []uint32) (string, int) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, b)
		}
	}
	return string(buf), len(words)
}

// Type returns the declared type with the given id.
func (m *Module) Type(id uint32) (*Type, bool) {
	t, ok := m.types[id]
	return t, ok
}

// Name returns the debug name of an id, empty when stripped.
func (m *Module) Name(id uint32) string {
	return m.names[id]
}

// MemberName returns the debug name of a struct member.
func (m *Module) MemberName(structID, member uint32) string {
	return m.memberNames[structID][member]
}

// Decoration returns the first literal of a decoration on id.
func (m *Module) Decoration(id uint32, d Decoration) (uint32, bool) {
	vals, ok := m.decorations[id][d]
	if !ok || len(vals) == 0 {
		return 0, ok
	}
	return vals[0], true
}

// HasDecoration reports whether id carries decoration d.
func (m *Module) HasDecoration(id uint32, d Decoration) bool {
	_, ok := m.decorations[id][d]
	return ok
}

// MemberDecoration returns the first literal of a member decoration.
func (m *Module) MemberDecoration(structID, member uint32, d Decoration) (uint32, bool) {
	vals, ok := m.memberDecorations[structID][member][d]
	if !ok || len(vals) == 0 {
		return 0, ok
	}
	return vals[0], true
}

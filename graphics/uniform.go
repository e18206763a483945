package graphics

import (
	"log/slog"

	"github.com/pkg/errors"
)

// UniformAttribute is one named member of a uniform block. Offsets are
// assigned in insertion order, each directly after the previous attribute.
type UniformAttribute struct {
	Name        string
	Offset      uint64
	LayerCount  uint32
	ElementSize uint32
}

// Size is the byte size of all layers.
func (a UniformAttribute) Size() uint64 {
	return uint64(a.ElementSize) * uint64(a.LayerCount)
}

type lifecycle int

const (
	lifecycleCreated lifecycle = iota
	lifecycleInitialized
	lifecycleTerminated
)

// Uniform describes one shader visible binding slot and, once initialized,
// owns host memory for its contents.
type Uniform struct {
	Name     string
	Binding  uint32
	Type     UniformType
	Location ShaderLocation

	attributes []UniformAttribute
	index      map[string]int
	size       uint64
	data       []byte
	state      lifecycle
}

func NewUniform(name string, typ UniformType, binding uint32, location ShaderLocation) *Uniform {
	return &Uniform{
		Name:     name,
		Binding:  binding,
		Type:     typ,
		Location: location,
		index:    make(map[string]int),
	}
}

// AddAttribute appends a member. Names are unique within one uniform and the
// layout is frozen once the uniform is initialized.
func (u *Uniform) AddAttribute(name string, elementSize, layerCount uint32) error {
	if u.state != lifecycleCreated {
		return errors.Errorf("uniform %q: attribute %q added after Initialize", u.Name, name)
	}
	if u.index == nil {
		u.index = make(map[string]int)
	}
	if _, ok := u.index[name]; ok {
		return errors.Wrapf(ErrDuplicateAttribute, "uniform %q: attribute %q", u.Name, name)
	}
	attr := UniformAttribute{
		Name:        name,
		Offset:      u.size,
		LayerCount:  layerCount,
		ElementSize: elementSize,
	}
	u.index[name] = len(u.attributes)
	u.attributes = append(u.attributes, attr)
	u.size += attr.Size()
	return nil
}

func (u *Uniform) Attributes() []UniformAttribute {
	return u.attributes
}

// Attribute looks up a member by name.
func (u *Uniform) Attribute(name string) (UniformAttribute, bool) {
	i, ok := u.index[name]
	if !ok {
		return UniformAttribute{}, false
	}
	return u.attributes[i], true
}

// Size is the sum of all attribute sizes.
func (u *Uniform) Size() uint64 {
	return u.size
}

func (u *Uniform) IsInitialized() bool {
	return u.state == lifecycleInitialized
}

// Initialize allocates zeroed backing storage. A second call logs a warning
// and does nothing.
func (u *Uniform) Initialize() error {
	switch u.state {
	case lifecycleInitialized:
		Logger().Warn("uniform already initialized", slog.String("uniform", u.Name))
		return nil
	case lifecycleTerminated:
		Logger().Warn("initialize on terminated uniform", slog.String("uniform", u.Name))
		return errors.Wrapf(ErrTerminated, "uniform %q", u.Name)
	}
	u.data = make([]byte, u.size)
	u.state = lifecycleInitialized
	return nil
}

// Terminate releases the backing storage.
func (u *Uniform) Terminate() error {
	switch u.state {
	case lifecycleCreated:
		Logger().Warn("terminate on uninitialized uniform", slog.String("uniform", u.Name))
		return errors.Wrapf(ErrNotInitialized, "uniform %q", u.Name)
	case lifecycleTerminated:
		Logger().Warn("uniform terminated twice", slog.String("uniform", u.Name))
		return errors.Wrapf(ErrTerminated, "uniform %q", u.Name)
	}
	u.data = nil
	u.state = lifecycleTerminated
	return nil
}

// SetAttribute copies data into the attribute's range. data may be shorter
// than the attribute but never longer.
func (u *Uniform) SetAttribute(name string, data []byte) error {
	if err := u.usable(); err != nil {
		return err
	}
	attr, ok := u.Attribute(name)
	if !ok {
		return errors.Errorf("uniform %q has no attribute %q", u.Name, name)
	}
	if uint64(len(data)) > attr.Size() {
		return errors.Errorf("uniform %q: %d bytes do not fit attribute %q of %d bytes", u.Name, len(data), name, attr.Size())
	}
	copy(u.data[attr.Offset:], data)
	return nil
}

// Bytes returns the backing storage, nil before Initialize.
func (u *Uniform) Bytes() []byte {
	return u.data
}

func (u *Uniform) usable() error {
	switch u.state {
	case lifecycleCreated:
		return errors.Wrapf(ErrNotInitialized, "uniform %q", u.Name)
	case lifecycleTerminated:
		Logger().Warn("use of terminated uniform", slog.String("uniform", u.Name))
		return errors.Wrapf(ErrTerminated, "uniform %q", u.Name)
	}
	return nil
}

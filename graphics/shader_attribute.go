package graphics

// ShaderAttribute is one stage input or output slot. Vertex inputs become
// vertex attribute descriptions; matrices occupy one location per layer.
type ShaderAttribute struct {
	Name        string
	Location    uint32
	Binding     uint32
	Offset      uint32
	LayerCount  uint32
	Type        DataType
	ElementSize uint32
}

// Size is the byte size of all layers.
func (a ShaderAttribute) Size() uint32 {
	return a.ElementSize * a.LayerCount
}

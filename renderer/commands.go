package renderer

import (
	"fmt"

	"dynamik/backend/vulkan"
	"dynamik/graphics"
	"dynamik/model"
)

// Instruction tags a renderer command.
type Instruction int

const (
	InstructionInitialize Instruction = iota
	InstructionCreateContext
	InstructionInitializeCamera
	InstructionSubmitEntity
	InstructionSubmitLevel
	InstructionResizeFrameBuffer
	InstructionSetSamples
	InstructionSetWindowHandle
	InstructionReloadShader
	InstructionSync
	InstructionReset
	InstructionTerminate
)

var instructionNames = [...]string{
	InstructionInitialize:        "Initialize",
	InstructionCreateContext:     "CreateContext",
	InstructionInitializeCamera:  "InitializeCamera",
	InstructionSubmitEntity:      "SubmitEntity",
	InstructionSubmitLevel:       "SubmitLevel",
	InstructionResizeFrameBuffer: "ResizeFrameBuffer",
	InstructionSetSamples:        "SetSamples",
	InstructionSetWindowHandle:   "SetWindowHandle",
	InstructionReloadShader:      "ReloadShader",
	InstructionSync:              "Sync",
	InstructionReset:             "Reset",
	InstructionTerminate:         "Terminate",
}

func (i Instruction) String() string {
	if i >= 0 && int(i) < len(instructionNames) {
		return instructionNames[i]
	}
	return fmt.Sprintf("Instruction(%d)", int(i))
}

// Category decides how the renderer loop dispatches an instruction.
type Category int

const (
	// CategorySystem commands are executed by the backend.
	CategorySystem Category = iota
	CategorySync
	CategoryReset
	CategoryTerminate
)

func (i Instruction) Category() Category {
	switch i {
	case InstructionSync:
		return CategorySync
	case InstructionReset:
		return CategoryReset
	case InstructionTerminate:
		return CategoryTerminate
	}
	return CategorySystem
}

// Command is a typed renderer command. Commands are plain data and are read
// only by the renderer goroutine once enqueued.
type Command interface {
	Instruction() Instruction
}

// SetSamples sets the multisample count of pipelines created afterwards.
type SetSamples struct{ Samples uint32 }

// SetWindowHandle attaches the window the next Initialize creates its
// device for.
type SetWindowHandle struct{ Window vulkan.Window }

// Initialize creates the display and device for the attached window.
type Initialize struct{}

type ContextType int

const (
	// ContextTypeDefault renders to the window's swapchain.
	ContextTypeDefault ContextType = iota
	// ContextTypeOffscreen renders to an image the size of the viewport.
	ContextTypeOffscreen
)

func (t ContextType) String() string {
	switch t {
	case ContextTypeDefault:
		return "Default"
	case ContextTypeOffscreen:
		return "Offscreen"
	}
	return fmt.Sprintf("ContextType(%d)", int(t))
}

// CreateContext creates the render target and the scene pipeline.
type CreateContext struct {
	Type     ContextType
	Viewport graphics.Viewport
}

type InitializeCamera struct{ Camera *model.Camera }

// SubmitEntity uploads a model and adds it to the drawn scene.
type SubmitEntity struct{ Entity *model.Model }

// SubmitLevel replaces the scene with the given models.
type SubmitLevel struct{ Entities []*model.Model }

type ResizeFrameBuffer struct{ Width, Height uint32 }

// RawInstruction carries a bare tag without payload.
type RawInstruction struct{ Raw Instruction }

// ReloadShader rebuilds the scene pipeline if Path is one of its stages.
type ReloadShader struct{ Path string }

type Sync struct{}
type Reset struct{}
type Terminate struct{}

func (SetSamples) Instruction() Instruction        { return InstructionSetSamples }
func (SetWindowHandle) Instruction() Instruction   { return InstructionSetWindowHandle }
func (Initialize) Instruction() Instruction        { return InstructionInitialize }
func (CreateContext) Instruction() Instruction     { return InstructionCreateContext }
func (InitializeCamera) Instruction() Instruction  { return InstructionInitializeCamera }
func (SubmitEntity) Instruction() Instruction      { return InstructionSubmitEntity }
func (SubmitLevel) Instruction() Instruction       { return InstructionSubmitLevel }
func (ResizeFrameBuffer) Instruction() Instruction { return InstructionResizeFrameBuffer }
func (r RawInstruction) Instruction() Instruction  { return r.Raw }
func (ReloadShader) Instruction() Instruction      { return InstructionReloadShader }
func (Sync) Instruction() Instruction              { return InstructionSync }
func (Reset) Instruction() Instruction             { return InstructionReset }
func (Terminate) Instruction() Instruction         { return InstructionTerminate }

package graphics

import "github.com/pkg/errors"

var (
	// ErrUnsupported marks a request for a feature that is not implemented,
	// such as reflecting GLSL source or building a compute pipeline.
	ErrUnsupported = errors.New("unsupported feature")

	ErrInvalidPipelineType = errors.New("invalid pipeline type")
	ErrNotInitialized      = errors.New("resource not initialized")
	ErrTerminated          = errors.New("resource already terminated")

	// ErrMissingResource is reported when a descriptor binding has no buffer
	// or texture left to bind.
	ErrMissingResource = errors.New("missing binding resource")

	ErrDuplicateBinding   = errors.New("duplicate binding")
	ErrDuplicateAttribute = errors.New("duplicate attribute")
	ErrDeviceExists       = errors.New("display already owns a device")
	ErrQueueClosed        = errors.New("command queue closed")
	ErrInvalidBytecode    = errors.New("invalid shader bytecode")
)

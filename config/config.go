// Package config loads the renderer configuration from TOML.
package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type Window struct {
	Title  string `toml:"title"`
	Width  int32  `toml:"width"`
	Height int32  `toml:"height"`
}

type Renderer struct {
	Validation       bool     `toml:"validation"`
	ValidationLayers []string `toml:"validation_layers"`
	DeviceExtensions []string `toml:"device_extensions"`
	PreferDiscrete   bool     `toml:"prefer_discrete"`
	// Samples is the multisample count of created pipelines.
	Samples uint32 `toml:"samples"`
	// QueueCapacity bounds the renderer command queue.
	QueueCapacity int `toml:"queue_capacity"`
	// FrameRate caps presented frames per second. Zero disables pacing.
	FrameRate  int        `toml:"frame_rate"`
	ClearColor [4]float32 `toml:"clear_color"`
	LogLevel   slog.Level `toml:"log_level"`
}

type Memory struct {
	// StagingLimit caps a single staging upload, e.g. "64MB". Zero is unlimited.
	StagingLimit datasize.ByteSize `toml:"staging_limit"`
	UniformSize  datasize.ByteSize `toml:"uniform_size"`
}

type Shaders struct {
	Directory string `toml:"directory"`
	Vertex    string `toml:"vertex"`
	Fragment  string `toml:"fragment"`
	// Watch reloads shaders when their files change.
	Watch bool `toml:"watch"`
}

type Scene struct {
	// Mesh is an STL file. A cube is shown when empty.
	Mesh string `toml:"mesh"`
}

type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Memory   Memory   `toml:"memory"`
	Shaders  Shaders  `toml:"shaders"`
	Scene    Scene    `toml:"scene"`
}

func DefaultConfig() Config {
	return Config{
		Window: Window{Title: "Dynamik", Width: 1280, Height: 720},
		Renderer: Renderer{
			Samples:       1,
			QueueCapacity: 10,
			FrameRate:     60,
			ClearColor:    [4]float32{0.01, 0.01, 0.01, 1},
			LogLevel:      slog.LevelInfo,
		},
		Memory: Memory{
			StagingLimit: 64 * datasize.MB,
			UniformSize:  datasize.KB,
		},
		Shaders: Shaders{
			Directory: "shaders",
			Vertex:    "mesh.vert.spv",
			Fragment:  "mesh.frag.spv",
		},
	}
}

// LoadConfig decodes the file at path over DefaultConfig. Unknown keys are
// rejected. Paths starting with ~ are expanded.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := Decode(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, path)
	}
	return cfg, nil
}

func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return errors.Errorf("decode config at %d:%d: %s", row, col, derr.Error())
		}
		return errors.Wrap(err, "decode config")
	}
	var err error
	if cfg.Shaders.Directory, err = homedir.Expand(cfg.Shaders.Directory); err != nil {
		return errors.Wrap(err, "shader directory")
	}
	if cfg.Scene.Mesh, err = homedir.Expand(cfg.Scene.Mesh); err != nil {
		return errors.Wrap(err, "scene mesh")
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Errorf("window size %dx%d", c.Window.Width, c.Window.Height)
	case c.Renderer.QueueCapacity <= 0:
		return errors.Errorf("queue capacity %d", c.Renderer.QueueCapacity)
	case c.Renderer.FrameRate < 0:
		return errors.Errorf("frame rate %d", c.Renderer.FrameRate)
	case c.Renderer.Samples == 0 || c.Renderer.Samples&(c.Renderer.Samples-1) != 0:
		return errors.Errorf("sample count %d is not a power of two", c.Renderer.Samples)
	}
	return nil
}

// ShaderPath resolves a shader file name against the shader directory.
func (c Config) ShaderPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Shaders.Directory, name)
}

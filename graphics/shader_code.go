package graphics

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"log/slog"
	"os"

	"github.com/pkg/errors"
)

// ShaderCode holds compiled shader words for one stage together with the
// resources reflected from them. It is mutated only by LoadCode, SetCode and
// PerformReflection and must not change while a pipeline is being built.
type ShaderCode struct {
	// Path is the file the words were loaded from, empty for in-memory code.
	Path     string
	Type     ShaderCodeType
	Location ShaderLocation

	words  []uint32
	hash   uint64
	digest ReflectionDigest
}

// LoadCode reads a SPIR-V binary and reflects it. On failure the word buffer
// is left empty.
func (s *ShaderCode) LoadCode(path string, typ ShaderCodeType, location ShaderLocation) error {
	s.reset(path, typ, location)
	raw, err := os.ReadFile(path)
	if err != nil {
		Logger().Error("failed to load shader code", slog.String("path", path), slog.Any("err", err))
		return errors.Wrapf(err, "load shader %s", path)
	}
	if len(raw) == 0 || len(raw)%4 != 0 {
		Logger().Error("shader code is not a word stream", slog.String("path", path), slog.Int("bytes", len(raw)))
		return errors.Wrapf(ErrInvalidBytecode, "load shader %s: %d bytes", path, len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	Logger().Debug("loaded shader code", slog.String("path", path), slog.Int("bytes", len(raw)))
	s.setWords(words)
	return s.PerformReflection()
}

// SetCode is LoadCode for words already in memory. The slice is copied.
func (s *ShaderCode) SetCode(words []uint32, typ ShaderCodeType, location ShaderLocation) error {
	s.reset("", typ, location)
	s.setWords(append([]uint32(nil), words...))
	return s.PerformReflection()
}

func (s *ShaderCode) reset(path string, typ ShaderCodeType, location ShaderLocation) {
	s.Path = path
	s.Type = typ
	s.Location = location
	s.words = nil
	s.hash = 0
	s.digest = ReflectionDigest{}
}

func (s *ShaderCode) setWords(words []uint32) {
	s.words = words
	h := fnv.New64a()
	for _, w := range words {
		hashWriteUint32(h, w)
	}
	s.hash = h.Sum64()
}

// PerformReflection replaces the digest with one reflected from the current
// words. A failed reflection leaves an empty digest.
func (s *ShaderCode) PerformReflection() error {
	digest, err := Reflect(s)
	s.digest = digest
	return err
}

// Hash is the FNV-1a hash of the raw words. It ignores reflected metadata.
func (s *ShaderCode) Hash() uint64 {
	return s.hash
}

func (s *ShaderCode) Words() []uint32 {
	return s.words
}

// Bytes returns the words as a little endian byte stream.
func (s *ShaderCode) Bytes() []byte {
	out := make([]byte, len(s.words)*4)
	for i, w := range s.words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func (s *ShaderCode) Digest() ReflectionDigest {
	return s.digest
}

func (s *ShaderCode) Uniforms() []*Uniform {
	return s.digest.Uniforms
}

func (s *ShaderCode) InputAttributes() []ShaderAttribute {
	return s.digest.InputAttributes
}

func (s *ShaderCode) OutputAttributes() []ShaderAttribute {
	return s.digest.OutputAttributes
}

func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

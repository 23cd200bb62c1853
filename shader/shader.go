// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader holds the round-trip compute kernel and the helpers that
// turn it into SPIR-V.
//
// The kernel ships as embedded WGSL. [Default] compiles it once with naga and
// caches the result; [Load] reads a precompiled artifact produced by
// cmd/spvgen instead.
package shader

//go:generate go run ../cmd/spvgen -in roundtrip.wgsl -out roundtrip.spv

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/naga"
)

// EntryPoint is the compute entry point of every program in this package.
const EntryPoint = "main"

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

//go:embed roundtrip.wgsl
var roundtripWGSL string

// Errors returned when decoding SPIR-V.
var (
	// ErrEmpty is returned for a zero-length module.
	ErrEmpty = errors.New("shader: empty SPIR-V module")

	// ErrNotWordAligned is returned when the module size is not a multiple of 4.
	ErrNotWordAligned = errors.New("shader: SPIR-V size is not a multiple of 4")

	// ErrBadMagic is returned when the first word is not the SPIR-V magic number.
	ErrBadMagic = errors.New("shader: bad SPIR-V magic number")

	// ErrCompile is returned when WGSL fails to compile.
	ErrCompile = errors.New("shader: WGSL compilation failed")
)

// Program is a compiled compute kernel.
type Program struct {
	// Name labels the program in GPU debug tooling.
	Name string

	// WGSL is the source the program was compiled from. It is empty for
	// programs loaded from a SPIR-V artifact.
	WGSL string

	// SPIRV holds the module as 32-bit words.
	SPIRV []uint32

	// EntryPoint is the compute entry point.
	EntryPoint string
}

// Source returns the embedded WGSL source of the round-trip kernel.
func Source() string {
	return roundtripWGSL
}

var defaultProgram = sync.OnceValues(func() (*Program, error) {
	return Compile("roundtrip", roundtripWGSL)
})

// Default returns the round-trip kernel compiled from the embedded source.
// Compilation happens once per process.
func Default() (*Program, error) {
	return defaultProgram()
}

// Compile compiles WGSL source to a Program.
func Compile(name, wgsl string) (*Program, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	words, err := Words(spirvBytes)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", name, err)
	}
	return &Program{
		Name:       name,
		WGSL:       wgsl,
		SPIRV:      words,
		EntryPoint: EntryPoint,
	}, nil
}

// Load reads a precompiled SPIR-V artifact from path.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader: read artifact: %w", err)
	}
	words, err := Words(data)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Program{
		Name:       name,
		SPIRV:      words,
		EntryPoint: EntryPoint,
	}, nil
}

// Words converts a SPIR-V byte stream to little-endian 32-bit words and
// checks the magic number.
func Words(b []byte) ([]uint32, error) {
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotWordAligned, len(b))
	}

	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}

	if words[0] != Magic {
		return nil, fmt.Errorf("%w: 0x%08x", ErrBadMagic, words[0])
	}
	return words, nil
}

// Bytes converts SPIR-V words back to their little-endian byte stream.
func Bytes(words []uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

// modules.go - external capability interfaces and headless defaults
//
// License: GPLv3 or later

/*
Package modules defines the six capability interfaces the core
consumes (audio, disk, input, render, vertex, debug), headless no-op
implementations of each for running without any outside world
attached, and concrete adapters backed by a real third-party stack:
ebiten-backed render/input, oto-backed audio, and a clipboard-backed
debug decorator.

Grounded on IntuitionAmiga-IntuitionEngine's debug_interface.go (the
shape of a small capability interface consumed by the engine core) and
its audio_backend_oto.go/video_backend_ebiten.go/video_voodoo.go (the
concrete backend adapters); generalized from that single fixed backend
set to the GameCube capability surface this core needs.
*/
package modules

import "io"

// AudioFrame is one stereo sample pair pushed to an AudioModule once
// per guest audio tick.
type AudioFrame struct {
	Left, Right int16
}

// SampleRate is one of the two rates the Gekko's audio interface can
// be configured to.
type SampleRate int

const (
	SampleRate32kHz SampleRate = 32000
	SampleRate48kHz SampleRate = 48000
)

// AudioModule receives the stream of output samples the emulated
// Audio Interface produces.
type AudioModule interface {
	SetSampleRate(rate SampleRate)
	Play(frame AudioFrame)
}

// DiskModule is a seekable byte source standing in for an inserted
// optical disc image.
type DiskModule interface {
	io.ReaderAt
	HasDisk() bool
	Size() int64
}

// ControllerState is one GameCube controller's instantaneous state.
// Analog axes and triggers are centered/scaled the way the real pad
// reports them: sticks at u8 centered on 128, triggers 0-255.
type ControllerState struct {
	StickX, StickY     uint8
	CStickX, CStickY   uint8
	TriggerL, TriggerR uint8

	DPadUp, DPadDown, DPadLeft, DPadRight bool
	A, B, X, Y, Z, Start                  bool
}

// InputModule reports the current state of up to four controllers.
type InputModule interface {
	Controller(index int) (ControllerState, bool)
}

// Topology enumerates the primitive assembly modes a Draw action can
// specify.
type Topology int

const (
	TopologyQuads Topology = iota
	TopologyTriangles
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLines
	TopologyLineStrip
	TopologyPoints
)

// ActionKind discriminates the members of the Action union below.
type ActionKind int

const (
	ActionSetFramebufferFormat ActionKind = iota
	ActionSetViewport
	ActionSetClearColor
	ActionSetClearDepth
	ActionSetDepthMode
	ActionSetBlendMode
	ActionSetConstantAlpha
	ActionSetAlphaFunction
	ActionSetProjectionMatrix
	ActionSetTexEnvConfig
	ActionSetTexGenConfig
	ActionSetAmbient
	ActionSetMaterial
	ActionSetColorChannel
	ActionSetAlphaChannel
	ActionSetLight
	ActionLoadTexture
	ActionSetTexture
	ActionDraw
	ActionColorCopy
	ActionDepthCopy
	ActionXfbCopy
)

// Rect is a pixel rectangle used by the EFB copy actions; X1 and Y1
// are exclusive bounds, so its area is (X1-X0)*(Y1-Y0).
type Rect struct{ X0, Y0, X1, Y1 int }

// Action is the tagged union of every render command the CPU-side
// command-list interpreter (out of this core's scope) can hand to a
// RenderModule. Only the fields relevant to Kind are populated; this
// mirrors a Rust enum's per-variant payload without Go having one.
type Action struct {
	Kind ActionKind

	Index int // light/texture-unit/material index, where applicable

	Matrix  [16]float32
	Color   [4]float32
	Texture struct {
		ID            int
		Width, Height int
		Data          []byte
	}
	Draw struct {
		Topology Topology
		Vertices []Vertex
	}
	Copy struct {
		Rect  Rect
		Half  bool
		Clear bool
	}

	// ColorResult/DepthResult are filled in by exec for the
	// ColorCopy/DepthCopy actions: a plain return value stands in for
	// a response-channel handoff, since Go calls here are synchronous
	// unlike the original's cross-thread channel handoff.
	ColorResult []byte
	DepthResult []uint32
}

// RenderModule executes a single GPU command. Concrete adapters keep
// their own GPU/window state; exec itself never blocks waiting on a
// reply beyond what filling in ColorResult/DepthResult requires.
type RenderModule interface {
	Exec(action *Action) error
}

// Vertex is the canonical parsed form a VertexModule produces from a
// raw GameCube vertex-attribute stream.
type Vertex struct {
	Position      [3]float32
	Normal        [3]float32
	Color         [2][4]uint8
	TexCoord      [8][2]float32
	MatrixIndices [8]uint8
}

// VertexModule parses a raw vertex-attribute stream (guided by a
// vertex-descriptor and vertex-attribute-table pair already decoded
// elsewhere) into canonical Vertex values plus which matrix each
// vertex selects.
type VertexModule interface {
	Parse(ram []byte, descriptor, attribTable []byte, arrays [][]byte, defaultMatrices [][16]float32, stream []byte) (vertices []Vertex, matrixSet []uint8, err error)
}

// SourceLocation is a resolved file/line/column triple for a DWARF-ish
// debug-info lookup.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// DebugModule resolves guest addresses to symbol names and source
// locations, when debug info has been supplied.
type DebugModule interface {
	FindSymbol(addr uint32) (string, bool)
	FindLocation(addr uint32) (SourceLocation, bool)
}

// --- Headless defaults ---
//
// Every capability has a no-op implementation so System can always be
// constructed with a complete set of modules, matching
// debug_interface.go's pattern of a small interface the engine always
// has *some* implementation of, headless or not.

// NoAudio discards every frame.
type NoAudio struct{}

func (NoAudio) SetSampleRate(SampleRate) {}
func (NoAudio) Play(AudioFrame)          {}

// NoDisk reports no disk inserted.
type NoDisk struct{}

func (NoDisk) ReadAt(p []byte, off int64) (int, error) { return 0, io.EOF }
func (NoDisk) HasDisk() bool                           { return false }
func (NoDisk) Size() int64                             { return 0 }

// NoInput reports every controller slot empty.
type NoInput struct{}

func (NoInput) Controller(int) (ControllerState, bool) { return ControllerState{}, false }

// NoRender accepts every action as a no-op, filling zeroed results for
// the copy actions so callers don't need to special-case a missing
// renderer.
type NoRender struct{}

func (NoRender) Exec(action *Action) error {
	switch action.Kind {
	case ActionColorCopy:
		n := (action.Copy.Rect.X1 - action.Copy.Rect.X0) * (action.Copy.Rect.Y1 - action.Copy.Rect.Y0) * 4
		if n > 0 {
			action.ColorResult = make([]byte, n)
		}
	case ActionDepthCopy:
		n := (action.Copy.Rect.X1 - action.Copy.Rect.X0) * (action.Copy.Rect.Y1 - action.Copy.Rect.Y0)
		if n > 0 {
			action.DepthResult = make([]uint32, n)
		}
	}
	return nil
}

// NoVertex returns an empty vertex set.
type NoVertex struct{}

func (NoVertex) Parse([]byte, []byte, []byte, [][]byte, [][16]float32, []byte) ([]Vertex, []uint8, error) {
	return nil, nil, nil
}

// NoDebug resolves nothing.
type NoDebug struct{}

func (NoDebug) FindSymbol(uint32) (string, bool)           { return "", false }
func (NoDebug) FindLocation(uint32) (SourceLocation, bool) { return SourceLocation{}, false }

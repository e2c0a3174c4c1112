// License: GPLv3 or later

package modules

import "testing"

func TestNoAudioDiscardsFrames(t *testing.T) {
	var a NoAudio
	a.SetSampleRate(SampleRate48kHz)
	a.Play(AudioFrame{Left: 1, Right: -1}) // must not panic
}

func TestNoDiskReportsEmpty(t *testing.T) {
	var d NoDisk
	if d.HasDisk() {
		t.Fatalf("NoDisk.HasDisk() = true, want false")
	}
	if d.Size() != 0 {
		t.Fatalf("NoDisk.Size() = %d, want 0", d.Size())
	}
	buf := make([]byte, 4)
	n, err := d.ReadAt(buf, 0)
	if n != 0 || err == nil {
		t.Fatalf("ReadAt = (%d, %v), want (0, non-nil)", n, err)
	}
}

func TestNoInputReportsAbsent(t *testing.T) {
	var in NoInput
	if _, ok := in.Controller(0); ok {
		t.Fatalf("NoInput.Controller(0) reported present")
	}
}

func TestNoRenderFillsCopyResults(t *testing.T) {
	var r NoRender

	color := &Action{Kind: ActionColorCopy}
	color.Copy.Rect = Rect{X0: 0, Y0: 0, X1: 4, Y1: 2}
	if err := r.Exec(color); err != nil {
		t.Fatalf("Exec color copy: %v", err)
	}
	if len(color.ColorResult) != 4*2*4 {
		t.Fatalf("ColorResult len = %d, want %d", len(color.ColorResult), 4*2*4)
	}

	depth := &Action{Kind: ActionDepthCopy}
	depth.Copy.Rect = Rect{X0: 0, Y0: 0, X1: 3, Y1: 3}
	if err := r.Exec(depth); err != nil {
		t.Fatalf("Exec depth copy: %v", err)
	}
	if len(depth.DepthResult) != 9 {
		t.Fatalf("DepthResult len = %d, want 9", len(depth.DepthResult))
	}

	// An unrelated action kind should be accepted as a no-op.
	if err := r.Exec(&Action{Kind: ActionSetBlendMode}); err != nil {
		t.Fatalf("Exec blend mode: %v", err)
	}
}

func TestNoVertexReturnsEmptySet(t *testing.T) {
	var v NoVertex
	vertices, matrices, err := v.Parse(nil, nil, nil, nil, nil, nil)
	if vertices != nil || matrices != nil || err != nil {
		t.Fatalf("NoVertex.Parse = (%v, %v, %v), want all zero", vertices, matrices, err)
	}
}

func TestNoDebugResolvesNothing(t *testing.T) {
	var d NoDebug
	if _, ok := d.FindSymbol(0x8000_1000); ok {
		t.Fatalf("NoDebug.FindSymbol reported a hit")
	}
	if _, ok := d.FindLocation(0x8000_1000); ok {
		t.Fatalf("NoDebug.FindLocation reported a hit")
	}
}

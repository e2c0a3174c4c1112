//go:build !headless

// render_ebiten.go - ebiten-backed RenderModule and InputModule
//
// License: GPLv3 or later

package modules

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenRender is a RenderModule that accumulates the embedded
// framebuffer (EFB) a command-list interpreter targets into an RGBA
// image and presents it through ebiten.Game, following
// video_backend_ebiten.go's buffered-frame/ebiten.RunGame shape. The
// command set this core's RenderModule speaks (a fixed-function
// register-level Action union) has no analogue in that teacher, whose
// VideoOutput only ever receives whole decoded frames, so Exec adapts
// each Action into the one operation ebiten actually exposes: writing
// pixels into the presented image.
type EbitenRender struct {
	mu     sync.RWMutex
	width  int
	height int
	efb    []byte // RGBA8, width*height*4
	window *ebiten.Image
	ready  chan struct{}
	once   sync.Once

	clearColor [4]float32
}

// NewEbitenRender constructs a render module at the given EFB
// dimensions. Call Run to hand control to ebiten's game loop (this
// blocks the calling goroutine exactly like ebiten.RunGame always
// does, so callers run it on its own goroutine same as
// EbitenOutput.Start does).
func NewEbitenRender(width, height int) *EbitenRender {
	return &EbitenRender{
		width:  width,
		height: height,
		efb:    make([]byte, width*height*4),
		ready:  make(chan struct{}, 1),
	}
}

// Run starts the ebiten game loop. It returns once the window closes.
func (r *EbitenRender) Run(title string) error {
	ebiten.SetWindowSize(r.width, r.height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	return ebiten.RunGame(r)
}

// Exec applies one render action to the accumulated EFB state. Only
// the actions that have a pixel-visible effect on a plain RGBA
// presentation surface (clear and the EFB/XFB copies) do anything
// here; the fixed-function state-setting actions (blend mode, tev
// config, lighting, matrices) are accepted but have no further sink in
// this adapter, since an EFB-as-RGBA-image presentation has no GPU
// pipeline to configure — a real 3D backend (see VulkanRender) is
// where those actions actually matter.
func (r *EbitenRender) Exec(action *Action) error {
	switch action.Kind {
	case ActionSetClearColor:
		r.mu.Lock()
		r.clearColor = action.Color
		r.mu.Unlock()
	case ActionXfbCopy, ActionColorCopy:
		r.mu.Lock()
		if action.Copy.Clear {
			r.fillLocked(r.clearColor)
		}
		out := make([]byte, len(r.efb))
		copy(out, r.efb)
		r.mu.Unlock()
		if action.Kind == ActionColorCopy {
			action.ColorResult = out
		}
	case ActionDepthCopy:
		r.mu.RLock()
		n := r.width * r.height
		r.mu.RUnlock()
		action.DepthResult = make([]uint32, n)
	}
	return nil
}

// WritePixels replaces the EFB contents wholesale, the entry point a
// software rasterizer elsewhere in the pipeline uses to publish a
// completed frame.
func (r *EbitenRender) WritePixels(rgba []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.efb, rgba)
}

func (r *EbitenRender) fillLocked(color [4]float32) {
	rr, gg, bb, aa := byte(color[0]*255), byte(color[1]*255), byte(color[2]*255), byte(color[3]*255)
	for i := 0; i < len(r.efb); i += 4 {
		r.efb[i], r.efb[i+1], r.efb[i+2], r.efb[i+3] = rr, gg, bb, aa
	}
}

// Update implements ebiten.Game. It has nothing to poll itself; all
// mutation arrives through Exec from the emulation thread.
func (r *EbitenRender) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game, presenting the current EFB.
func (r *EbitenRender) Draw(screen *ebiten.Image) {
	r.mu.RLock()
	if r.window == nil {
		r.window = ebiten.NewImage(r.width, r.height)
	}
	r.window.WritePixels(r.efb)
	r.mu.RUnlock()
	screen.DrawImage(r.window, nil)
	r.once.Do(func() { close(r.ready) })
}

// Layout implements ebiten.Game.
func (r *EbitenRender) Layout(_, _ int) (int, int) { return r.width, r.height }

// Snapshot returns the current EFB as an image.RGBA, for screenshotting
// or a debug overlay.
func (r *EbitenRender) Snapshot() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	copy(img.Pix, r.efb)
	return img
}

// EbitenInput is an InputModule reading ebiten's gamepad API, falling
// back to a WASD+arrow keyboard mapping for controller 0 so the core
// is drivable without a physical pad attached, the same convenience
// video_backend_ebiten.go's keyboard path provides for its terminal
// input. IntuitionAmiga-IntuitionEngine targets a keyboard-only
// machine and never reads a gamepad, so the gamepad polling below is
// grounded directly on ebiten's own public GamepadID/StandardGamepad
// API instead.
type EbitenInput struct{}

// NewEbitenInput constructs an input module.
func NewEbitenInput() *EbitenInput { return &EbitenInput{} }

func (EbitenInput) Controller(index int) (ControllerState, bool) {
	ids := ebiten.AppendGamepadIDs(nil)
	if index < len(ids) {
		id := ids[index]
		return ControllerState{
			StickX:      axisToStick(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)),
			StickY:      axisToStick(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)),
			CStickX:     axisToStick(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickHorizontal)),
			CStickY:     axisToStick(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisRightStickVertical)),
			TriggerL:    triggerToByte(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisFrontLeftTrigger)),
			TriggerR:    triggerToByte(ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisFrontRightTrigger)),
			DPadUp:      ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftTop),
			DPadDown:    ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftBottom),
			DPadLeft:    ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftLeft),
			DPadRight:   ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonLeftRight),
			A:           ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightBottom),
			B:           ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightRight),
			X:           ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightLeft),
			Y:           ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonRightTop),
			Z:           ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonFrontRightTop),
			Start:       ebiten.IsStandardGamepadButtonPressed(id, ebiten.StandardGamepadButtonCenterRight),
		}, true
	}

	if index != 0 {
		return ControllerState{}, false
	}
	return ControllerState{
		StickX:    keyAxis(ebiten.KeyA, ebiten.KeyD),
		StickY:    keyAxis(ebiten.KeyS, ebiten.KeyW),
		DPadUp:    ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		DPadDown:  ebiten.IsKeyPressed(ebiten.KeyArrowDown),
		DPadLeft:  ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		DPadRight: ebiten.IsKeyPressed(ebiten.KeyArrowRight),
		A:         ebiten.IsKeyPressed(ebiten.KeyEnter),
		B:         ebiten.IsKeyPressed(ebiten.KeyBackspace),
		Start:     ebiten.IsKeyPressed(ebiten.KeySpace),
	}, true
}

func axisToStick(v float64) uint8 {
	return uint8(128 + int(v*127))
}

func triggerToByte(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	return uint8(v * 255)
}

func keyAxis(neg, pos ebiten.Key) uint8 {
	v := 128
	if ebiten.IsKeyPressed(neg) {
		v -= 127
	}
	if ebiten.IsKeyPressed(pos) {
		v += 127
	}
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

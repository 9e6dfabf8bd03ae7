package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"deferred-renderer/gpu"
)

// texture is a GL color texture, optionally paired with a depth renderbuffer
// when it is a render target.
type texture struct {
	device *Device
	desc   gpu.TargetDesc
	id     uint32
	depth  uint32 // renderbuffer, 0 without depth
}

func (t *texture) Width() int { return t.desc.Width }

func (t *texture) Height() int { return t.desc.Height }

func (t *texture) Format() gpu.Format { return t.desc.Format }

func (t *texture) Desc() gpu.TargetDesc { return t.desc }

func (t *texture) Destroy() {
	if t.id == 0 {
		return
	}
	t.device.forgetTarget(t)
	gl.DeleteTextures(1, &t.id)
	t.id = 0
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
		t.depth = 0
	}
}

func glFormat(f gpu.Format) (internal int32, format, xtype uint32) {
	switch f {
	case gpu.FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT
	case gpu.FormatR32F:
		return gl.R32F, gl.RED, gl.FLOAT
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

func (d *Device) allocTexture(desc gpu.TargetDesc, pixels unsafe.Pointer) *texture {
	t := &texture{device: d, desc: desc}
	internal, format, xtype := glFormat(desc.Format)

	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal,
		int32(desc.Width), int32(desc.Height), 0, format, xtype, pixels)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

func (d *Device) CreateRenderTarget(desc gpu.TargetDesc) (gpu.RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: %q is %dx%d", gpu.ErrInvalidTarget, desc.Label, desc.Width, desc.Height)
	}
	if d.maxTargetSize > 0 && int32(max(desc.Width, desc.Height)) > d.maxTargetSize {
		return nil, fmt.Errorf("%w: %q is %dx%d, GL_MAX_TEXTURE_SIZE %d", gpu.ErrInvalidTarget, desc.Label, desc.Width, desc.Height, d.maxTargetSize)
	}
	t := d.allocTexture(desc, nil)
	if desc.Depth {
		gl.GenRenderbuffers(1, &t.depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(desc.Width), int32(desc.Height))
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}

	// Check the target on its own before handing it out.
	_, status := d.framebuffer([]*texture{t})
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.boundFBO)
	if status != gl.FRAMEBUFFER_COMPLETE {
		t.Destroy()
		return nil, fmt.Errorf("%w: %q status=0x%X", gpu.ErrTargetIncomplete, desc.Label, status)
	}
	d.live[t] = struct{}{}
	return t, nil
}

func (d *Device) CreateTexture(width, height int, rgba []uint8) (gpu.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: texture is %dx%d", gpu.ErrInvalidTarget, width, height)
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("texture data has %d bytes, want %d", len(rgba), width*height*4)
	}
	t := d.allocTexture(gpu.TargetDesc{Label: "texture", Width: width, Height: height, Format: gpu.FormatRGBA8}, gl.Ptr(rgba))
	d.live[t] = struct{}{}
	return t, nil
}

// fboKey identifies a framebuffer by its color attachments.
type fboKey [4]uint32

// framebuffer returns the cached FBO for targets, creating it on first use.
// The depth buffer of the first target is attached. The FBO is left bound.
func (d *Device) framebuffer(targets []*texture) (uint32, uint32) {
	var key fboKey
	for i, t := range targets {
		key[i] = t.id
	}
	if fbo, ok := d.fbos[key]; ok {
		gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
		return fbo, gl.FRAMEBUFFER_COMPLETE
	}

	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	buffers := make([]uint32, len(targets))
	for i, t := range targets {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(i), gl.TEXTURE_2D, t.id, 0)
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	if targets[0].depth != 0 {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, targets[0].depth)
	}
	gl.DrawBuffers(int32(len(buffers)), &buffers[0])

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
		return 0, status
	}
	d.fbos[key] = fbo
	return fbo, status
}

// forgetTarget drops every cached FBO that references t.
func (d *Device) forgetTarget(t *texture) {
	delete(d.live, t)
	for key, fbo := range d.fbos {
		for _, id := range key {
			if id == t.id {
				if d.boundFBO == fbo {
					d.bindSurface()
				}
				gl.DeleteFramebuffers(1, &fbo)
				delete(d.fbos, key)
				break
			}
		}
	}
	for i, b := range d.bound {
		if b == t {
			d.bound = append(d.bound[:i], d.bound[i+1:]...)
			break
		}
	}
}

package gpu

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens the noop adapter.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// noopContext builds an offscreen RenderContext on the noop device without
// going through negotiation.
func noopContext(t *testing.T, tier Tier, width, height uint32) (*RenderContext, *countingDevice, *recordingQueue) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	dev := &countingDevice{Device: device}
	q := &recordingQueue{Queue: queue}
	backend := gputypes.BackendMetal
	if tier == TierLegacy {
		backend = gputypes.BackendGL
	}
	rc := &RenderContext{
		Tier:        tier,
		Profile:     ProfileNoAntialias,
		Backend:     backend,
		Device:      dev,
		Queue:       q,
		Format:      gputypes.TextureFormatBGRA8Unorm,
		SampleCount: 1,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		external:    true,
		width:       width,
		height:      height,
	}
	return rc, dev, q
}

// countingDevice counts resource creation and destruction and can be told
// to fail a named create call.
type countingDevice struct {
	hal.Device

	mu        sync.Mutex
	created   map[string]int
	destroyed map[string]int
	order     []string
	failOn    string

	// onIdle runs inside WaitIdle, after the call is recorded.
	onIdle func()
}

var errInjected = errors.New("injected failure")

func (d *countingDevice) create(kind string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn == kind {
		return errInjected
	}
	if d.created == nil {
		d.created = make(map[string]int)
	}
	d.created[kind]++
	d.order = append(d.order, "create "+kind)
	return nil
}

func (d *countingDevice) destroy(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed == nil {
		d.destroyed = make(map[string]int)
	}
	d.destroyed[kind]++
	d.order = append(d.order, "destroy "+kind)
}

func (d *countingDevice) live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind] - d.destroyed[kind]
}

func (d *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if err := d.create("buffer"); err != nil {
		return nil, err
	}
	return d.Device.CreateBuffer(desc)
}

func (d *countingDevice) DestroyBuffer(b hal.Buffer) {
	d.destroy("buffer")
	d.Device.DestroyBuffer(b)
}

func (d *countingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if err := d.create("texture"); err != nil {
		return nil, err
	}
	return d.Device.CreateTexture(desc)
}

func (d *countingDevice) DestroyTexture(tex hal.Texture) {
	d.destroy("texture")
	d.Device.DestroyTexture(tex)
}

func (d *countingDevice) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if err := d.create("view"); err != nil {
		return nil, err
	}
	return d.Device.CreateTextureView(tex, desc)
}

func (d *countingDevice) DestroyTextureView(v hal.TextureView) {
	d.destroy("view")
	d.Device.DestroyTextureView(v)
}

func (d *countingDevice) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	if err := d.create("sampler"); err != nil {
		return nil, err
	}
	return d.Device.CreateSampler(desc)
}

func (d *countingDevice) DestroySampler(s hal.Sampler) {
	d.destroy("sampler")
	d.Device.DestroySampler(s)
}

func (d *countingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if err := d.create("bind group layout"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *countingDevice) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.destroy("bind group layout")
	d.Device.DestroyBindGroupLayout(l)
}

func (d *countingDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if err := d.create("bind group"); err != nil {
		return nil, err
	}
	return d.Device.CreateBindGroup(desc)
}

func (d *countingDevice) DestroyBindGroup(g hal.BindGroup) {
	d.destroy("bind group")
	d.Device.DestroyBindGroup(g)
}

func (d *countingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if err := d.create("pipeline layout"); err != nil {
		return nil, err
	}
	return d.Device.CreatePipelineLayout(desc)
}

func (d *countingDevice) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.destroy("pipeline layout")
	d.Device.DestroyPipelineLayout(l)
}

func (d *countingDevice) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if err := d.create("shader module"); err != nil {
		return nil, err
	}
	return d.Device.CreateShaderModule(desc)
}

func (d *countingDevice) DestroyShaderModule(m hal.ShaderModule) {
	d.destroy("shader module")
	d.Device.DestroyShaderModule(m)
}

func (d *countingDevice) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if err := d.create("render pipeline"); err != nil {
		return nil, err
	}
	return d.Device.CreateRenderPipeline(desc)
}

func (d *countingDevice) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.destroy("render pipeline")
	d.Device.DestroyRenderPipeline(p)
}

func (d *countingDevice) WaitIdle() error {
	d.mu.Lock()
	d.order = append(d.order, "wait idle")
	onIdle := d.onIdle
	d.mu.Unlock()
	if onIdle != nil {
		onIdle()
	}
	return d.Device.WaitIdle()
}

// index returns the position of the first entry in the call order, or -1.
func (d *countingDevice) index(entry string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.order {
		if e == entry {
			return i
		}
	}
	return -1
}

func (d *countingDevice) FreeCommandBuffer(cmd hal.CommandBuffer) {
	d.destroy("command buffer")
	d.Device.FreeCommandBuffer(cmd)
}

// recordingQueue keeps the last write to every buffer and counts texture
// writes, submissions and presents. A stalled queue reports no submission
// as completed until resume.
type recordingQueue struct {
	hal.Queue

	mu            sync.Mutex
	buffers       map[hal.Buffer][]byte
	textureWrites int
	submits       int
	presents      int
	stalled       bool
}

func (q *recordingQueue) stall() {
	q.mu.Lock()
	q.stalled = true
	q.mu.Unlock()
}

func (q *recordingQueue) resume() {
	q.mu.Lock()
	q.stalled = false
	q.mu.Unlock()
}

func (q *recordingQueue) PollCompleted() uint64 {
	q.mu.Lock()
	stalled := q.stalled
	q.mu.Unlock()
	if stalled {
		return 0
	}
	return q.Queue.PollCompleted()
}

func (q *recordingQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	q.mu.Lock()
	if q.buffers == nil {
		q.buffers = make(map[hal.Buffer][]byte)
	}
	q.buffers[buf] = append([]byte(nil), data...)
	q.mu.Unlock()
	return q.Queue.WriteBuffer(buf, offset, data)
}

func (q *recordingQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.mu.Lock()
	q.textureWrites++
	q.mu.Unlock()
	return q.Queue.WriteTexture(dst, data, layout, size)
}

func (q *recordingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	q.submits++
	q.mu.Unlock()
	return q.Queue.Submit(cmds)
}

func (q *recordingQueue) Present(surface hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	q.mu.Lock()
	q.presents++
	q.mu.Unlock()
	return q.Queue.Present(surface, tex, damage)
}

func (q *recordingQueue) written(buf hal.Buffer) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buffers[buf]
}

// failingBackend is a registered backend whose instances cannot be created.
type failingBackend struct {
	variant gputypes.Backend
}

func (b failingBackend) Variant() gputypes.Backend { return b.variant }

func (b failingBackend) CreateInstance(*hal.InstanceDescriptor) (hal.Instance, error) {
	return nil, errors.New("driver not available")
}

// lookupOnly resolves the listed backend variants to the given HAL backends
// and reports every other variant as unregistered.
func lookupOnly(m map[gputypes.Backend]hal.Backend) BackendLookup {
	return func(b gputypes.Backend) (hal.Backend, bool) {
		be, ok := m[b]
		return be, ok
	}
}

// fakeTarget is a Target with a fixed size and optional window handle.
type fakeTarget struct {
	w, h   int
	scale  float64
	window uintptr
}

func (f fakeTarget) Size() (int, int)                  { return f.w, f.h }
func (f fakeTarget) ScaleFactor() float64              { return f.scale }
func (f fakeTarget) NativeHandles() (uintptr, uintptr) { return 0, f.window }

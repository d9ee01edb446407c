package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// frameTextureFormat is the storage format of uploaded frames.
const frameTextureFormat = gputypes.TextureFormatRGBA8Unorm

// halBacking is the HAL storage behind a textureObject.
type halBacking struct {
	tex  hal.Texture
	view hal.TextureView
}

// halTextureStore implements textureStore on a HAL device. Every HAL
// texture is fixed-size, so mutable storage is emulated by swapping the
// backing of the same textureObject. Storage is freed only after the
// frames that sample it have finished.
type halTextureStore struct {
	rc        *RenderContext
	device    hal.Device
	queue     hal.Queue
	immutable bool
}

func newHALTextureStore(rc *RenderContext) *halTextureStore {
	return &halTextureStore{rc: rc, device: rc.Device, queue: rc.Queue, immutable: rc.Tier.ImmutableStorage()}
}

func (s *halTextureStore) SupportsImmutable() bool { return s.immutable }

func (s *halTextureStore) CreateImmutable(width, height int) (*textureObject, error) {
	return s.create(width, height, StorageImmutable)
}

func (s *halTextureStore) CreateMutable(width, height int) (*textureObject, error) {
	return s.create(width, height, StorageMutable)
}

func (s *halTextureStore) create(width, height int, kind StorageKind) (*textureObject, error) {
	b, err := s.allocate(width, height)
	if err != nil {
		return nil, err
	}
	return &textureObject{width: width, height: height, kind: kind, backing: b}, nil
}

// Respecify replaces obj's storage. The old storage is released first so
// the device never holds two frame textures; when the new allocation
// fails obj is left without storage.
func (s *halTextureStore) Respecify(obj *textureObject, width, height int) error {
	if obj.kind != StorageMutable {
		return fmt.Errorf("respecify %s storage", obj.kind)
	}
	s.free(obj)
	b, err := s.allocate(width, height)
	if err != nil {
		obj.width, obj.height = 0, 0
		return err
	}
	obj.backing = b
	obj.width, obj.height = width, height
	return nil
}

func (s *halTextureStore) Destroy(obj *textureObject) {
	s.free(obj)
}

func (s *halTextureStore) Write(obj *textureObject, x, y, width, height int, pix []byte, stride int) error {
	b, ok := obj.backing.(*halBacking)
	if !ok || b == nil {
		return fmt.Errorf("texture has no storage")
	}
	return s.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  b.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:   gputypes.TextureAspectAll,
		},
		pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(stride),
			RowsPerImage: uint32(height),
		},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)
}

func (s *halTextureStore) allocate(width, height int) (*halBacking, error) {
	tex, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "preview_frame",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        frameTextureFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create frame texture: %w", err)
	}
	view, err := s.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "preview_frame_view",
		Format:        frameTextureFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		s.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create frame texture view: %w", err)
	}
	return &halBacking{tex: tex, view: view}, nil
}

func (s *halTextureStore) free(obj *textureObject) {
	b, ok := obj.backing.(*halBacking)
	if !ok || b == nil {
		return
	}
	s.rc.waitInflight()
	if b.view != nil {
		s.device.DestroyTextureView(b.view)
	}
	if b.tex != nil {
		s.device.DestroyTexture(b.tex)
	}
	obj.backing = nil
}

// View returns the view of the current frame texture, or nil when nothing
// is allocated.
func (ft *FrameTexture) View() hal.TextureView {
	if ft.obj == nil {
		return nil
	}
	if b, ok := ft.obj.backing.(*halBacking); ok && b != nil {
		return b.view
	}
	return nil
}

package gpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gpucontext"
	xdraw "golang.org/x/image/draw"
)

// StorageKind describes how the current frame texture's storage was
// allocated.
type StorageKind uint8

const (
	// StorageNone means no texture is allocated.
	StorageNone StorageKind = iota
	// StorageMutable storage can be re-specified at a new size in place.
	StorageMutable
	// StorageImmutable storage is fixed-size for the texture's lifetime.
	StorageImmutable
)

func (k StorageKind) String() string {
	switch k {
	case StorageNone:
		return "none"
	case StorageMutable:
		return "mutable"
	case StorageImmutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// TextureState describes the frame texture. Width and Height are those of
// the last successful upload. Generation increments whenever the texture
// object or its storage changes, so cached bind groups can be refreshed.
type TextureState struct {
	Width      int
	Height     int
	Storage    StorageKind
	Generation uint64
}

// TextureStats counts what the upload policy did.
type TextureStats struct {
	Allocations   int // texture objects created
	Respecified   int // mutable storage re-specified at a new size
	Destroyed     int // texture objects destroyed
	Updates       int // sub-region writes
	Reallocations int // uploads whose size differed from the previous storage
	Direct        int // uploads sized by the frame because the source reported none
	Failures      int
}

// textureObject is one texture object. Respecify may swap its backing
// storage without changing the object identity.
type textureObject struct {
	width, height int
	kind          StorageKind
	backing       any
}

// textureStore is the slice of the device the upload policy needs.
type textureStore interface {
	SupportsImmutable() bool
	CreateImmutable(width, height int) (*textureObject, error)
	CreateMutable(width, height int) (*textureObject, error)
	Respecify(obj *textureObject, width, height int) error
	Destroy(obj *textureObject)
	Write(obj *textureObject, x, y, width, height int, pix []byte, stride int) error
}

// FrameTexture owns the texture holding the current video frame. At most
// one texture object is live at any time. Upload failures leave the
// previous content in place.
//
// FrameTexture is not safe for concurrent use; the renderer serializes it
// with all other GPU work.
type FrameTexture struct {
	store   textureStore
	obj     *textureObject
	state   TextureState
	stats   TextureStats
	scratch *image.RGBA
}

var (
	_ gpucontext.Texture              = (*FrameTexture)(nil)
	_ gpucontext.TextureUpdater       = (*FrameTexture)(nil)
	_ gpucontext.TextureRegionUpdater = (*FrameTexture)(nil)
)

// NewFrameTexture creates a frame texture manager on rc's device. Nothing
// is allocated until the first upload.
func NewFrameTexture(rc *RenderContext) *FrameTexture {
	return newFrameTexture(newHALTextureStore(rc))
}

func newFrameTexture(store textureStore) *FrameTexture {
	return &FrameTexture{store: store}
}

// State returns the current texture state.
func (ft *FrameTexture) State() TextureState { return ft.state }

// Stats returns the policy counters.
func (ft *FrameTexture) Stats() TextureStats { return ft.stats }

// Width returns the width of the allocated storage.
func (ft *FrameTexture) Width() int {
	if ft.obj == nil {
		return 0
	}
	return ft.obj.width
}

// Height returns the height of the allocated storage.
func (ft *FrameTexture) Height() int {
	if ft.obj == nil {
		return 0
	}
	return ft.obj.height
}

// Upload copies frame into the texture. width and height are the source's
// reported dimensions; when either is not positive the frame's own bounds
// are used and the upload may allocate. A frame whose bounds differ from
// the reported size is scaled to it.
//
// Rows are uploaded top first and never flipped.
//
// On failure the error wraps ErrTextureUpload and the previous frame stays
// in place.
func (ft *FrameTexture) Upload(frame image.Image, width, height int) error {
	if frame == nil || frame.Bounds().Empty() {
		slogger().Debug("skipping empty frame")
		return fmt.Errorf("%w: %w", ErrTextureUpload, errEmptyFrame)
	}
	if width <= 0 || height <= 0 {
		b := frame.Bounds()
		width, height = b.Dx(), b.Dy()
		ft.stats.Direct++
	}

	pix, stride := ft.pixels(frame, width, height)
	if err := ft.upload(pix, stride, width, height); err != nil {
		ft.stats.Failures++
		slogger().Warn("frame upload failed, keeping previous frame",
			"width", width, "height", height, "storage", ft.state.Storage, "err", err)
		return fmt.Errorf("%w: %w", ErrTextureUpload, err)
	}
	ft.state.Width, ft.state.Height = width, height
	return nil
}

func (ft *FrameTexture) upload(pix []byte, stride, width, height int) error {
	if ft.obj != nil && ft.obj.width == width && ft.obj.height == height {
		if err := ft.store.Write(ft.obj, 0, 0, width, height, pix, stride); err != nil {
			return fmt.Errorf("update in place: %w", err)
		}
		ft.stats.Updates++
		return nil
	}

	resized := ft.obj != nil
	switch {
	case ft.store.SupportsImmutable():
		if ft.obj != nil {
			ft.release()
		}
		obj, err := ft.store.CreateImmutable(width, height)
		if err != nil {
			return fmt.Errorf("allocate immutable %dx%d: %w", width, height, err)
		}
		ft.adopt(obj)
	case ft.obj != nil:
		if err := ft.store.Respecify(ft.obj, width, height); err != nil {
			// The old storage is gone with the failed respecify.
			ft.release()
			return fmt.Errorf("respecify mutable %dx%d: %w", width, height, err)
		}
		ft.stats.Respecified++
		ft.state.Generation++
	default:
		obj, err := ft.store.CreateMutable(width, height)
		if err != nil {
			return fmt.Errorf("allocate mutable %dx%d: %w", width, height, err)
		}
		ft.adopt(obj)
	}
	if resized {
		ft.stats.Reallocations++
		slogger().Debug("frame texture reallocated", "width", width, "height", height, "storage", ft.state.Storage)
	}

	if err := ft.store.Write(ft.obj, 0, 0, width, height, pix, stride); err != nil {
		return fmt.Errorf("upload %dx%d: %w", width, height, err)
	}
	ft.stats.Updates++
	return nil
}

func (ft *FrameTexture) adopt(obj *textureObject) {
	ft.obj = obj
	ft.stats.Allocations++
	ft.state.Storage = obj.kind
	ft.state.Generation++
}

func (ft *FrameTexture) release() {
	if ft.obj == nil {
		return
	}
	ft.store.Destroy(ft.obj)
	ft.obj = nil
	ft.stats.Destroyed++
	ft.state.Storage = StorageNone
	ft.state.Generation++
}

// pixels returns frame as tightly addressed RGBA rows of the given size.
// *image.RGBA frames of the right size are used without copying.
func (ft *FrameTexture) pixels(frame image.Image, width, height int) ([]byte, int) {
	if img, ok := frame.(*image.RGBA); ok && img.Rect.Dx() == width && img.Rect.Dy() == height {
		return img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):], img.Stride
	}
	if ft.scratch == nil || ft.scratch.Rect.Dx() != width || ft.scratch.Rect.Dy() != height {
		ft.scratch = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	b := frame.Bounds()
	if b.Dx() == width && b.Dy() == height {
		xdraw.Draw(ft.scratch, ft.scratch.Rect, frame, b.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(ft.scratch, ft.scratch.Rect, frame, b, xdraw.Src, nil)
	}
	return ft.scratch.Pix, ft.scratch.Stride
}

// UpdateData replaces the whole texture with tightly packed RGBA data of
// the current size.
func (ft *FrameTexture) UpdateData(data []byte) error {
	if ft.obj == nil {
		return fmt.Errorf("%w: no texture allocated", ErrTextureUpload)
	}
	return ft.UpdateRegion(0, 0, ft.obj.width, ft.obj.height, data)
}

// UpdateRegion writes tightly packed RGBA data into a sub-rectangle.
func (ft *FrameTexture) UpdateRegion(x, y, w, h int, data []byte) error {
	if ft.obj == nil {
		return fmt.Errorf("%w: no texture allocated", ErrTextureUpload)
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > ft.obj.width || y+h > ft.obj.height {
		return fmt.Errorf("%w: region (%d,%d %dx%d) outside %dx%d texture",
			ErrTextureUpload, x, y, w, h, ft.obj.width, ft.obj.height)
	}
	if len(data) != w*h*4 {
		return fmt.Errorf("%w: region data is %d bytes, want %d", ErrTextureUpload, len(data), w*h*4)
	}
	if err := ft.store.Write(ft.obj, x, y, w, h, data, w*4); err != nil {
		ft.stats.Failures++
		return fmt.Errorf("%w: %w", ErrTextureUpload, err)
	}
	ft.stats.Updates++
	return nil
}

// Destroy releases the texture. Safe to call more than once.
func (ft *FrameTexture) Destroy() {
	ft.release()
}

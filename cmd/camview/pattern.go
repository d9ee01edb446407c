package main

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/gogpu/camview"
)

// bars are the SMPTE-style test colors.
var bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// pattern is a synthetic camera: color bars with a moving white stripe,
// announced at a fixed frame rate.
type pattern struct {
	width, height int
	interval      time.Duration

	mu       sync.Mutex
	seq      uint64
	start    time.Time
	frame    *image.RGBA
	callback func(camview.FrameInfo)
	stop     chan struct{}
	once     sync.Once
}

var (
	_ camview.FrameSource   = (*pattern)(nil)
	_ camview.FrameNotifier = (*pattern)(nil)
)

func newPattern(width, height int, fps float64) *pattern {
	if fps <= 0 {
		fps = 30
	}
	p := &pattern{
		width:    width,
		height:   height,
		interval: time.Duration(float64(time.Second) / fps),
		start:    time.Now(),
		stop:     make(chan struct{}),
	}
	p.frame = p.draw(0)
	go p.run()
	return p
}

func (p *pattern) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			p.mu.Lock()
			p.seq++
			p.frame = p.draw(p.seq)
			info := camview.FrameInfo{Sequence: p.seq, Timestamp: now.Sub(p.start)}
			fn := p.callback
			p.callback = nil
			p.mu.Unlock()
			if fn != nil {
				fn(info)
			}
		}
	}
}

func (p *pattern) draw(seq uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	stripe := int(seq*4) % p.width
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			c := bars[x*len(bars)/p.width]
			if x >= stripe && x < stripe+8 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func (p *pattern) Dimensions() (int, int) { return p.width, p.height }

func (p *pattern) CurrentFrame() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame, nil
}

func (p *pattern) RequestFrameCallback(fn func(camview.FrameInfo)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callback = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.callback = nil
	}
}

// Close stops frame generation.
func (p *pattern) Close() {
	p.once.Do(func() { close(p.stop) })
}

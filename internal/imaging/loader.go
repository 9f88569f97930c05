package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/ironsheep/glyphrec/internal/hog"
)

// ImageCache keeps decoded images keyed by path so repeated requests for the
// same drawing skip disk reads and decoding.
//
// Cached images stay in memory until Evict or Clear. The server holds one
// cache for its lifetime; callers handling many distinct files should evict
// after use.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load returns the image at path, decoding it on first use.
//
// Parameters:
//   - path: PNG, JPEG or GIF file. The exact string is the cache key, so a
//     relative and an absolute path to one file are cached separately.
//
// Returns the decoded image or an error when the file cannot be opened or
// decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadGlyph loads path through the cache and normalizes it with ToGlyph.
func (c *ImageCache) LoadGlyph(path string, opts GlyphOptions) (hog.Image, error) {
	img, err := c.Load(path)
	if err != nil {
		return hog.Image{}, err
	}
	return ToGlyph(img, opts)
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict drops the image cached under path, if any.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

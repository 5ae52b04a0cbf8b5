package textfile

import "github.com/dshills/textstore/internal/engine/codec"

// DefaultStride is the number of bytes between two checkpoints.
const DefaultStride = 2048

// MinStride is the smallest accepted stride. A stride below the longest
// character encoding would let two checkpoints land inside one character.
const MinStride = codec.MaxLen

// Option configures a TextFile during Load.
type Option func(*config)

type config struct {
	stride  int
	release func() error
	tag     any
}

func defaultConfig() config {
	return config{stride: DefaultStride}
}

// WithStride sets the checkpoint stride in bytes.
// Values below MinStride are raised to MinStride.
func WithStride(stride int) Option {
	return func(c *config) {
		c.stride = max(stride, MinStride)
	}
}

// WithRelease sets the action run by Close. It is invoked at most once.
func WithRelease(release func() error) Option {
	return func(c *config) {
		c.release = release
	}
}

// WithTag sets the initial value of the Tag field.
func WithTag(tag any) Option {
	return func(c *config) {
		c.tag = tag
	}
}

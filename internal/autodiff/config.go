package autodiff

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Config sizes the tape's arenas.
type Config struct {
	// BlockSize is the number of nodes per arena block.
	BlockSize int `yaml:"block_size"`
	// EdgeBlockSize is the number of operand slots per block for n-ary nodes.
	EdgeBlockSize int `yaml:"edge_block_size"`
	// MaxNodes bounds the node arena. Node ids are int32, so it never exceeds math.MaxInt32.
	MaxNodes int `yaml:"max_nodes"`
	// MaxEdges bounds the edge arena; 0 means unbounded.
	MaxEdges int `yaml:"max_edges"`
	// InitialCapacity pre-sizes the chaining and non-chaining sequences.
	InitialCapacity int `yaml:"initial_capacity"`
}

// DefaultConfig returns the configuration used by the zero Tape.
func DefaultConfig() Config {
	return Config{
		BlockSize:       1 << 14,
		EdgeBlockSize:   1 << 14,
		MaxNodes:        math.MaxInt32,
		MaxEdges:        0,
		InitialCapacity: 64, // Pre-allocate for common case
	}
}

// ParseConfig decodes a YAML document on top of DefaultConfig.
//
//	block_size: 4096
//	max_nodes: 1000000
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects negative sizes and node bounds that do not fit an int32 id.
func (c Config) Validate() error {
	switch {
	case c.BlockSize < 0:
		return fmt.Errorf("%w: block_size %d is negative", ErrInvalidConfig, c.BlockSize)
	case c.EdgeBlockSize < 0:
		return fmt.Errorf("%w: edge_block_size %d is negative", ErrInvalidConfig, c.EdgeBlockSize)
	case c.MaxNodes < 0 || c.MaxNodes > math.MaxInt32:
		return fmt.Errorf("%w: max_nodes %d outside [0, %d]", ErrInvalidConfig, c.MaxNodes, math.MaxInt32)
	case c.MaxEdges < 0:
		return fmt.Errorf("%w: max_edges %d is negative", ErrInvalidConfig, c.MaxEdges)
	case c.InitialCapacity < 0:
		return fmt.Errorf("%w: initial_capacity %d is negative", ErrInvalidConfig, c.InitialCapacity)
	}
	return nil
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BlockSize <= 0 {
		c.BlockSize = def.BlockSize
	}
	if c.EdgeBlockSize <= 0 {
		c.EdgeBlockSize = def.EdgeBlockSize
	}
	if c.MaxNodes <= 0 || c.MaxNodes > math.MaxInt32 {
		c.MaxNodes = def.MaxNodes
	}
	if c.MaxEdges < 0 {
		c.MaxEdges = def.MaxEdges
	}
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = def.InitialCapacity
	}
	return c
}

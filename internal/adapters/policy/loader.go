package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/league/pkg/logger"
)

// Loader resolves a checkpoint reference to a Policy.
type Loader interface {
	Load(ctx context.Context, ref string) (Policy, error)
}

// Option applies a configuration option to the FileLoader.
type Option func(*FileLoader)

// WithLogger sets the loader logger.
func WithLogger(l logger.Logger) Option {
	return func(f *FileLoader) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithSeed seeds checkpoints that carry no seed of their own, so runs can be
// reproduced. Zero leaves them time seeded.
func WithSeed(seed int64) Option {
	return func(f *FileLoader) {
		f.seed = seed
	}
}

// FileLoader reads YAML checkpoints from disk and caches them by path.
type FileLoader struct {
	mu     sync.Mutex
	cache  map[string]Policy
	seed   int64
	logger logger.Logger
}

var _ Loader = (*FileLoader)(nil)

// NewFileLoader constructs a FileLoader.
func NewFileLoader(opts ...Option) *FileLoader {
	f := &FileLoader{
		cache:  make(map[string]Policy),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load implements Loader.
func (f *FileLoader) Load(ctx context.Context, ref string) (Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[ref]; ok {
		return p, nil
	}
	cp, err := ReadCheckpoint(ref)
	if err != nil {
		return nil, err
	}
	if cp.Seed == 0 && f.seed != 0 {
		cp.Seed = f.seed + int64(len(f.cache))
	}
	p, err := NewLinear(cp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadCheckpoint, ref, err)
	}
	f.cache[ref] = p
	f.logger.Debug(ctx, "checkpoint loaded",
		logger.String("checkpoint", ref),
		logger.Int("actions", cp.Actions()),
		logger.Int("features", cp.Features()),
		logger.Bool("greedy", cp.Greedy),
	)
	return p, nil
}

// ReadCheckpoint parses the YAML checkpoint at path.
func ReadCheckpoint(path string) (Checkpoint, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %s: %w", ErrLoadCheckpoint, path, err)
	}
	cp := Checkpoint{Temperature: 1}
	if err := k.UnmarshalWithConf("", &cp, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %s: %w", ErrLoadCheckpoint, path, err)
	}
	return cp, nil
}

package formatters

import (
	"fmt"
	"sync"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// Constructor builds a formatter from options.
type Constructor func(opts FormatOptions) (types.Formatter, error)

// Factory creates formatters by name, for config-file wiring. "text" and
// "json" are registered out of the box; callers may register their own.
type Factory struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewFactory creates a factory with the built-in formatters registered.
func NewFactory() *Factory {
	f := &Factory{
		constructors: make(map[string]Constructor),
	}
	f.Register("text", func(opts FormatOptions) (types.Formatter, error) {
		return &TextFormatter{Options: opts}, nil
	})
	f.Register("json", func(opts FormatOptions) (types.Formatter, error) {
		return &JSONFormatter{Options: opts}, nil
	})
	return f
}

// Register adds a constructor under name, replacing any previous one.
func (f *Factory) Register(name string, constructor Constructor) error {
	if name == "" {
		return fmt.Errorf("formatter name cannot be empty")
	}
	if constructor == nil {
		return fmt.Errorf("formatter constructor cannot be nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[name] = constructor
	return nil
}

// Create builds the named formatter.
func (f *Factory) Create(name string, opts FormatOptions) (types.Formatter, error) {
	f.mu.RLock()
	constructor, ok := f.constructors[name]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown formatter %q", name)
	}
	return constructor(opts)
}

// Names returns the registered formatter names.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	return names
}

var defaultFactory = NewFactory()

// New builds a formatter by name from the package-level factory.
func New(name string, opts FormatOptions) (types.Formatter, error) {
	return defaultFactory.Create(name, opts)
}

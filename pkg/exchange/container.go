package exchange

import (
	"fmt"
	"sync"

	"tradewire/internal/transport"
)

// Container is a thread-safe registry of exchanges keyed by name.
type Container struct {
	mu        sync.RWMutex
	exchanges map[string]Exchange
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		exchanges: make(map[string]Exchange),
	}
}

// NewDefaultContainer creates a container holding every unified venue, all
// sharing the given dispatch engine.
func NewDefaultContainer(tr *transport.Client) *Container {
	c := NewContainer()
	for _, name := range []string{"binance", "bybit", "kucoin", "mexc"} {
		ex, err := New(name, tr)
		if err != nil {
			panic(err) // the default names are always constructible
		}
		c.Register(name, ex)
	}
	return c
}

// Register adds an exchange under the given name, replacing any previous
// entry.
func (c *Container) Register(name string, ex Exchange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchanges[name] = ex
}

// Get retrieves an exchange by name.
func (c *Container) Get(name string) (Exchange, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ex, exists := c.exchanges[name]
	if !exists {
		return nil, fmt.Errorf("exchange %q not found", name)
	}
	return ex, nil
}

// Names returns the registered exchange names.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.exchanges))
	for name := range c.exchanges {
		names = append(names, name)
	}
	return names
}

// Unregister removes an exchange by name.
func (c *Container) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exchanges, name)
}

// Exists reports whether an exchange with the given name is registered.
func (c *Container) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.exchanges[name]
	return exists
}

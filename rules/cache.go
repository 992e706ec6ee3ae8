package rules

import (
	"strings"
	"sync"
)

// Cache keeps compiled programs. Layouts declare few rules, so the default
// cache never evicts.
type Cache interface {
	Get(key string) (Program, bool)
	Set(key string, program Program)
}

func NewCache() Cache {
	return &mapCache{programs: make(map[string]Program)}
}

type mapCache struct {
	mu       sync.RWMutex
	programs map[string]Program
}

func (c *mapCache) Get(key string) (Program, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	program, ok := c.programs[key]
	return program, ok
}

func (c *mapCache) Set(key string, program Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = program
}

// cacheKey covers everything a compiled program depends on.
func cacheKey(backend, expr string, vars, funcs []string) string {
	var b strings.Builder
	b.WriteString(backend)
	b.WriteByte(0)
	b.WriteString(strings.Join(vars, ","))
	b.WriteByte(0)
	b.WriteString(strings.Join(funcs, ","))
	b.WriteByte(0)
	b.WriteString(expr)
	return b.String()
}

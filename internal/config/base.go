package config

import "sync"

type BaseConfigManager[T any] struct {
	mu   sync.RWMutex
	conf *T

	mgr *Manager
}

// C returns the read-only configuration by value
func (a *BaseConfigManager[T]) C() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.conf
}

type ConfigModifierFunc[T any] func(c *T)

func (a *BaseConfigManager[T]) Set(setFunc ConfigModifierFunc[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// call the set function
	setFunc(a.conf)
}

// Save the main config, dont lock, the manager will lock us
func (a *BaseConfigManager[T]) Save() error {
	return a.mgr.Save()
}

// verifyTags runs the struct tag validation on the section
func (a *BaseConfigManager[T]) verifyTags() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return validate.Struct(a.conf)
}

func (a *BaseConfigManager[T]) lock() {
	a.mu.Lock()
}

func (a *BaseConfigManager[T]) unlock() {
	a.mu.Unlock()
}

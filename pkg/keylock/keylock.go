// Package keylock exclusión mutua por clave (una fase, un usuario).
package keylock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex mantiene un mutex por clave y lo libera cuando nadie lo usa.
// El valor cero está listo para usarse.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New crea un KeyedMutex vacío.
func New() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock bloquea la clave y devuelve la función para liberarla.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*entry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// LockMany bloquea varias claves en orden lexicográfico (sin duplicados) para evitar interbloqueos
// entre llamadas que piden las mismas claves en distinto orden.
func (k *KeyedMutex) LockMany(keys ...string) (unlock func()) {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)
	unlocks := make([]func(), 0, len(uniq))
	for _, key := range uniq {
		unlocks = append(unlocks, k.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len claves con al menos un poseedor o esperando (para tests).
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

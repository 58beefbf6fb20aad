//go:build js && wasm

package browser

import (
	"fmt"
	"syscall/js"

	"github.com/MrSnakeDoc/handoff/internal/kv"
)

// Storage is a kv.Store over a Web Storage area. Storage exceptions, such as
// quota errors or disabled storage, never escape.
type Storage struct {
	area js.Value
}

var _ kv.Store = (*Storage)(nil)

// LocalStorage returns window.localStorage, or an in-memory store when the
// browser refuses access.
func LocalStorage() kv.Store { return open("localStorage") }

// SessionStorage returns window.sessionStorage, or an in-memory store when
// the browser refuses access.
func SessionStorage() kv.Store { return open("sessionStorage") }

func open(name string) (store kv.Store) {
	defer func() {
		if recover() != nil {
			store = kv.NewMemory()
		}
	}()
	area := js.Global().Get(name)
	if !area.Truthy() {
		return kv.NewMemory()
	}
	return &Storage{area: area}
}

func (s *Storage) Get(key string) (value string, ok bool) {
	defer func() {
		if recover() != nil {
			value, ok = "", false
		}
	}()
	v := s.area.Call("getItem", key)
	if v.Type() != js.TypeString {
		return "", false
	}
	return v.String(), true
}

func (s *Storage) Set(key, value string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("setItem %s: %v", key, p)
		}
	}()
	s.area.Call("setItem", key, value)
	return nil
}

func (s *Storage) Remove(key string) {
	defer func() { _ = recover() }()
	s.area.Call("removeItem", key)
}

// Package directory keeps the identities of modules found on a bus.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robotalks/iobus/pkg/frame"
	"github.com/robotalks/iobus/pkg/protocol"
)

var (
	// ErrNotFound indicates no module with the id.
	ErrNotFound = errors.New("module not found")
	// ErrInvalidID indicates the id can't address a single module.
	ErrInvalidID = errors.New("invalid module id")
)

// Identity describes a module on the bus.
type Identity struct {
	ID       uint16 `json:"id"`
	Type     uint16 `json:"type"`
	Serial   uint32 `json:"serial"`
	Name     string `json:"name,omitempty"`
	Firmware string `json:"firmware,omitempty"`
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	s := fmt.Sprintf("#%d %s sn=%d", i.ID, protocol.TypeName(i.Type), i.Serial)
	if i.Name != "" {
		s += " " + i.Name
	}
	if i.Firmware != "" {
		s += " fw=" + i.Firmware
	}
	return s
}

// Directory maps logical ids to identities.
type Directory struct {
	lock    sync.RWMutex
	modules map[uint16]Identity
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{modules: make(map[uint16]Identity)}
}

// Register adds or replaces the identity of a module.
func (d *Directory) Register(id Identity) error {
	if id.ID == frame.BroadcastID || id.ID > frame.MaxID {
		return ErrInvalidID
	}
	d.lock.Lock()
	d.modules[id.ID] = id
	d.lock.Unlock()
	return nil
}

// Lookup finds a module by logical id.
func (d *Directory) Lookup(id uint16) (Identity, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if ident, ok := d.modules[id]; ok {
		return ident, nil
	}
	return Identity{}, ErrNotFound
}

// FindBySerial finds a module by type and serial number.
func (d *Directory) FindBySerial(typ uint16, serial uint32) (Identity, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	for _, ident := range d.modules {
		if ident.Type == typ && ident.Serial == serial {
			return ident, nil
		}
	}
	return Identity{}, ErrNotFound
}

// All returns all identities ordered by id.
func (d *Directory) All() []Identity {
	d.lock.RLock()
	list := make([]Identity, 0, len(d.modules))
	for _, ident := range d.modules {
		list = append(list, ident)
	}
	d.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Len returns the number of modules.
func (d *Directory) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.modules)
}

// Reset forgets every module, before a new enumeration.
func (d *Directory) Reset() {
	d.lock.Lock()
	d.modules = make(map[uint16]Identity)
	d.lock.Unlock()
}

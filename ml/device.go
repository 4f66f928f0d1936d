// device.go
// Dieses Modul enthaelt Geraete-Bezeichner und die Namenskonventionen
// fuer Replika-Platzierung (Geraet /gpu:{i}, Scope tower_{i}).

package ml

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrNoDevices     = errors.New("no devices available")
	ErrInvalidDevice = errors.New("invalid device index")
)

// DeviceID identifiziert ein Geraet innerhalb einer Bibliothek
type DeviceID struct {
	// ID is an identifier for the device for matching with system
	// management libraries. It may be a numeric index or a UUID.
	ID string `json:"id"`

	// Library identifies which library is used for the device (e.g. CUDA, ROCm, etc.)
	Library string `json:"backend,omitempty"`
}

func (d DeviceID) String() string {
	if d.Library == "" {
		return d.ID
	}
	return d.Library + ":" + d.ID
}

// DeviceName liefert den Platzierungsnamen fuer GPU i.
func DeviceName(i int) string {
	return "/gpu:" + strconv.Itoa(i)
}

// TowerName liefert den Basisnamen des Scopes fuer Replika i.
func TowerName(i int) string {
	return fmt.Sprintf("tower_%d", i)
}

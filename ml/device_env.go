// device_env.go
// Dieses Modul enthaelt Funktionen fuer die Sichtbarkeit von GPU-Geraeten
// ueber Umgebungsvariablen und das Abgleichen der angeforderten
// Replika-Anzahl.

package ml

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mayo-ml/mayo/envconfig"
)

// VisibleDevices liest die sichtbaren Geraete aus CUDA_VISIBLE_DEVICES oder,
// falls nicht gesetzt, HIP_VISIBLE_DEVICES. Es zaehlt nur die erste gesetzte
// Variable. ok ist false, wenn keine gesetzt ist und die Anzahl damit
// unbekannt bleibt.
func VisibleDevices() ([]DeviceID, bool) {
	for _, v := range []struct {
		library string
		value   string
	}{
		{"CUDA", envconfig.CudaVisibleDevices()},
		{"ROCm", envconfig.HipVisibleDevices()},
	} {
		if v.value == "" {
			continue
		}

		var devices []DeviceID
		for _, id := range strings.Split(v.value, ",") {
			id = strings.TrimSpace(id)
			// "-1" blendet bei CUDA alle Geraete aus
			if id == "" || strings.HasPrefix(id, "-") {
				break
			}
			devices = append(devices, DeviceID{ID: id, Library: v.library})
		}
		return devices, true
	}

	return nil, false
}

// ClampDevices gleicht die angeforderte Replika-Anzahl mit den sichtbaren
// Geraeten ab. Sind weniger Geraete sichtbar, wird gekuerzt oder, mit
// MAYO_STRICT_DEVICES, abgebrochen.
func ClampDevices(requested int) (int, error) {
	if requested < 1 {
		return 0, fmt.Errorf("%w: requested %d", ErrNoDevices, requested)
	}

	visible, ok := VisibleDevices()
	if !ok || len(visible) >= requested {
		return requested, nil
	}

	if len(visible) == 0 {
		return 0, fmt.Errorf("%w: requested %d, none visible", ErrNoDevices, requested)
	}

	if envconfig.StrictDevices() {
		return 0, fmt.Errorf("%w: requested %d, %d visible", ErrNoDevices, requested, len(visible))
	}

	slog.Warn("fewer devices visible than requested, clamping", "requested", requested, "visible", len(visible), "devices", visible)
	return len(visible), nil
}

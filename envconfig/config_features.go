// config_features.go - GPU-Sichtbarkeit
//
// Dieses Modul enthaelt:
// - GPU-bezogene Environment-Variablen
package envconfig

// =============================================================================
// GPU-Sichtbarkeits-Variablen
// =============================================================================

var (
	// CudaVisibleDevices steuert sichtbare NVIDIA-Geraete
	CudaVisibleDevices = String("CUDA_VISIBLE_DEVICES")

	// HipVisibleDevices steuert sichtbare AMD-Geraete (numerische ID)
	HipVisibleDevices = String("HIP_VISIBLE_DEVICES")
)

// =============================================================================
// Feature-Flags
// =============================================================================

var (
	// StrictDevices bricht ab statt zu kuerzen, wenn mehr GPUs angefordert
	// als sichtbar sind
	StrictDevices = Bool("MAYO_STRICT_DEVICES")
)

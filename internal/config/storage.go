package config

import (
	"fmt"
	"os"
)

// VolumeEnvVar is the single environment variable that resolves the Pick
// Store's base directory at startup.
const VolumeEnvVar = "PICKENGINE_VOLUME_MOUNT_PATH"

// StorageConfig is the resolved, not-yet-validated storage configuration.
// Validation (writable / mountpoint / not-ephemeral) is pickstore's job,
// since it alone knows how to probe the filesystem; config only resolves
// the env var.
type StorageConfig struct {
	BaseDir string
}

// LoadStorageConfig resolves the volume path from the environment. A missing
// env var is itself a StorageFatal condition the caller should propagate as
// a fail-fast startup error.
func LoadStorageConfig() (StorageConfig, error) {
	base := os.Getenv(VolumeEnvVar)
	if base == "" {
		return StorageConfig{}, fmt.Errorf("%s is not set", VolumeEnvVar)
	}
	return StorageConfig{BaseDir: base}, nil
}

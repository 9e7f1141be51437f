package config

// Config is the installer configuration. Every field has a default; a
// config file only needs the keys it changes.
type Config struct {
	Runtime Runtime `yaml:"runtime"`
	Gateway Gateway `yaml:"gateway"`

	// PermissionMarkers are extra stderr substrings that identify a
	// permission failure, appended to the host's built-in markers.
	PermissionMarkers []string `yaml:"permission_markers" validate:"dive,required"`

	// LogDir receives one log file per installation attempt. Defaults to the
	// OS temp directory.
	LogDir string `yaml:"log_dir"`

	// StateFile holds the run history.
	StateFile string `yaml:"state_file" validate:"required"`
}

// Runtime describes the Node.js requirement.
// - MinMajor: lowest accepted major version.
// - DownloadURL: where users are sent to install or update Node.js.
// - Archive: optional https URL or local path of a Node.js distribution
//   archive to unpack and put first on PATH before the steps run.
// - InstallDir: where Archive is unpacked.
type Runtime struct {
	MinMajor    int    `yaml:"min_major" validate:"gte=1"`
	DownloadURL string `yaml:"download_url" validate:"required,url"`
	Archive     string `yaml:"archive" validate:"omitempty,archive_source"`
	InstallDir  string `yaml:"install_dir" validate:"required_with=Archive"`
}

// Gateway configures the service started after installation.
type Gateway struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

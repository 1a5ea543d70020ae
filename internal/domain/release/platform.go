package release

import "runtime"

// Platform is the {os-family, architecture} pair used in artifact names.
// Values follow desktop updater conventions (win32, x64, ia32) rather than Go's.
type Platform struct {
	OS   string
	Arch string
}

// CurrentPlatform describes the running process.
func CurrentPlatform() Platform {
	return PlatformFor(runtime.GOOS, runtime.GOARCH)
}

// PlatformFor maps Go's GOOS/GOARCH values to artifact naming.
func PlatformFor(goos, goarch string) Platform {
	osName := goos
	if goos == "windows" {
		osName = "win32"
	}

	arch := goarch

	switch goarch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "ia32"
	}

	return Platform{
		OS:   osName,
		Arch: arch,
	}
}

// String returns "os/arch".
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

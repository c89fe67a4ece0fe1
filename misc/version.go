// Package misc keeps build time information about the program.
package misc

import (
	"runtime/debug"
	"sync"
)

// set by linker: -ldflags "-X spritesheet/misc.version=... -X spritesheet/misc.gitHash=..."
var (
	appName = "spritesheet"
	version = ""
	gitHash = ""
)

var readBuildInfo = sync.OnceFunc(func() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if len(version) == 0 && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		version = bi.Main.Version
	}
	if len(gitHash) == 0 {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				gitHash = s.Value
				if len(gitHash) > 12 {
					gitHash = gitHash[:12]
				}
				break
			}
		}
	}
})

func GetAppName() string {
	return appName
}

func GetVersion() string {
	readBuildInfo()
	if len(version) == 0 {
		return "dev"
	}
	return version
}

func GetGitHash() string {
	readBuildInfo()
	if len(gitHash) == 0 {
		return "unknown"
	}
	return gitHash
}

// Package config reads the small set of options Nova's external
// collaborators (CLI flags, environment) hand down to the library packages.
// There is no config-file format: the teacher has none of its own, and
// nothing else in the retrieved pack contributes a config library suited to
// a struct this small, so this one corner stays on the standard library
// rather than reach for an ungrounded dependency.
package config

import "os"

// LoadOptions controls workspace discovery (spec §4.4, §6).
type LoadOptions struct {
	MavenRepo      string
	GradleUserHome string
}

// DefaultLoadOptions resolves MavenRepo/GradleUserHome the way mvn/gradle
// themselves would absent an explicit override: $HOME/.m2/repository and
// $HOME/.gradle.
func DefaultLoadOptions() LoadOptions {
	home, _ := os.UserHomeDir()
	return LoadOptions{
		MavenRepo:      home + "/.m2/repository",
		GradleUserHome: home + "/.gradle",
	}
}

// KeepHotSwapTemp reports whether NOVA_DAP_KEEP_HOT_SWAP_TEMP is set to a
// truthy value, in which case the DAP session leaves its hot-swap compile
// scratch directories on disk for inspection instead of removing them.
func KeepHotSwapTemp() bool {
	v := os.Getenv("NOVA_DAP_KEEP_HOT_SWAP_TEMP")
	return v == "1" || v == "true" || v == "yes"
}

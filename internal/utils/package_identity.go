package utils

import "fmt"

// PackageFileName returns the file name a package is written under
func PackageFileName(name, version, release string) string {
	return fmt.Sprintf("%s-%s-%s.rpm", name, version, release)
}

// PackageIdentity returns the name-version-release.arch label of a package
func PackageIdentity(name, version, release, arch string) string {
	if arch == "" {
		return fmt.Sprintf("%s-%s-%s", name, version, release)
	}
	return fmt.Sprintf("%s-%s-%s.%s", name, version, release, arch)
}

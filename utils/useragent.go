package utils

import (
	"fmt"
	"runtime"
)

const (
	PACKAGE_ID      = "yamcs-client-go"
	PACKAGE_VERSION = "0.4.0"
)

// BuildUserAgent identifies this client and its platform to the server.
func BuildUserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s/%s)", PACKAGE_ID, PACKAGE_VERSION, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

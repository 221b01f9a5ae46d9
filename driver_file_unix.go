//go:build unix

package amfcontext

import (
	"golang.org/x/sys/unix"
)

// CheckFileAccessible is access(path, F_OK).
func CheckFileAccessible(path string) error {
	return unix.Access(path, unix.F_OK)
}

//go:build !unix

package amfcontext

import (
	"os"
)

func CheckFileAccessible(path string) error {
	_, err := os.Stat(path)
	return err
}

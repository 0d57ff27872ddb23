package turtleos

import "os"

func createImageFile(name string) (*os.File, error) {
	return os.Create(name)
}

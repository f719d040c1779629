//go:build windows

package extract

func makeExecutable(path string) error {
	return nil
}

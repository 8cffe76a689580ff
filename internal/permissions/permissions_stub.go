//go:build !darwin

package permissions

// EnsureMicrophone is a no-op on non-macOS platforms; a missing device
// surfaces when the stream is opened.
func EnsureMicrophone() error {
	return nil
}

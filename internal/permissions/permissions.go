// Package permissions checks the operating-system microphone permission
// before capture starts.
package permissions

import "errors"

// ErrMicrophoneDenied is returned when the user has not granted microphone
// access to the process.
var ErrMicrophoneDenied = errors.New("permissions: microphone access not granted")

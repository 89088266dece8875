package variantlib

import "errors"

var (
	ErrInvalidRequest      = errors.New("device descriptor and requested name are required")
	ErrContentNotFound     = errors.New("requested content does not exist")
	ErrNoCompatibleContent = errors.New("no compatible content for this device")
	ErrNoFallbackAvailable = errors.New("no fallback available")

	ErrJobNotFound = errors.New("download job not found")
	ErrJobCanceled = errors.New("download job canceled")
)

package engine

// dependencyUnavailableError signals a runtime that is not present in this
// build or on this host (e.g., llama.cpp without the 'llama' tag).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}

// notLoadedError is returned when an operation needs a model that is not loaded.
type notLoadedError struct{ what string }

func (e notLoadedError) Error() string { return e.what + " not loaded" }

// IsNotLoaded reports whether err indicates a missing model.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}

package glossary

import "errors"

var (
	// ErrConfiguration covers load-time problems that must stop a session:
	// missing glossary columns, mixed or mismatched embedding dimensions.
	ErrConfiguration = errors.New("glossary configuration error")

	// ErrIndexUnavailable is returned by Nearest when no vector index has
	// been attached to the store.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrAmbiguousLookup is returned together with the entries when a key
	// term occurs more than once in the glossary.
	ErrAmbiguousLookup = errors.New("ambiguous glossary lookup")
)

package ledger

import "fmt"

// Backend represents a ledger export target.
type Backend interface {
	EntryAppender
	EntryLister
}

// BackendType selects the ledger backend implementation.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}

// ParseBackendType validates a configured backend name.
func ParseBackendType(s string) (BackendType, error) {
	bt := BackendType(s)
	if !bt.IsValid() {
		return "", fmt.Errorf("invalid ledger backend: %s", s)
	}
	return bt, nil
}

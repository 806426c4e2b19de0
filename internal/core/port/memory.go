package port

type MemoryProbe interface {
	// Ceiling returns the current process memory ceiling in bytes.
	Ceiling() int64
	// Usage returns the memory currently in use in bytes.
	Usage() int64
	// Raise lifts the ceiling by delta bytes and returns the new ceiling.
	Raise(delta int64) (int64, error)
}

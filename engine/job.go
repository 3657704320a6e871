package engine

// job is the engine's job record (component D). It is immutable once
// submitted except for terminationCount and memnbt, both of which only the
// worker currently owning the job updates.
type job struct {
	key  string
	args Args
	fn   Func

	terminationCount int
	memnbt           int64 // memory needed before termination, in bytes
}

func newJob(key string, value any, fn Func, b0 int64) *job {
	return &job{
		key:    key,
		args:   Args{Key: key, Value: value},
		fn:     fn,
		memnbt: b0,
	}
}

package common

// RunHooks defines a set of function callbacks that control how a run
// reports progress and diagnostics to the user (info lines, warnings, a
// final exit).
//
// This is implemented as a struct of function fields rather than an
// interface, so that safe defaults can be provided. Callers override only
// the 1-2 callbacks they care about, without writing boilerplate
// implementations for all of them.
type RunHooks struct {
	Info func(string)
	Warn func(string)
	Exit func(message string, err error)
}

func NewRunHooks() *RunHooks {
	return &RunHooks{
		Info: func(msg string) {
			// default: no-op
		},
		Warn: func(msg string) {
			// default: no-op
		},
		Exit: func(message string, err error) {
			// default: no-op
		},
	}
}

var rhm *RunHooks

func GetRunHooks() *RunHooks {
	if rhm == nil {
		rhm = NewRunHooks()
	}
	return rhm
}

func SetRunHooks(hooks *RunHooks) {
	rhm = hooks
}

// PanicIfErr captures the common logic of exiting if there's an unexpected error.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Package command assembles step worker invocations from typed options.
package command

// Arg is one flag for a worker invocation. Value may be empty for boolean
// flags, in which case only the flag token is emitted.
type Arg struct {
	Flag  string
	Value string
}

// Flag returns a boolean flag argument.
func Flag(flag string) Arg {
	return Arg{Flag: flag}
}

// Value returns a flag with an associated value token.
func Value(flag, value string) Arg {
	return Arg{Flag: flag, Value: value}
}

// Builder produces argument vectors for the worker binary. Building is pure:
// flags are appended in call order, tokens are passed through untouched, and
// invocation failures surface later from the executor.
type Builder struct {
	binary string
}

// NewBuilder constructs a Builder for the given worker binary.
func NewBuilder(binary string) Builder {
	return Builder{binary: binary}
}

// Binary returns the configured worker executable.
func (b Builder) Binary() string {
	return b.binary
}

// Build produces [executable, step, ...flags] for process invocation.
func (b Builder) Build(step string, args ...Arg) []string {
	out := make([]string, 0, 2+len(args)*2)
	out = append(out, b.binary, step)
	for _, arg := range args {
		if arg.Flag == "" {
			continue
		}
		out = append(out, arg.Flag)
		if arg.Value != "" {
			out = append(out, arg.Value)
		}
	}
	return out
}

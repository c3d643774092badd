package hostconfig

import "os"

// Env looks settings up in the process environment as Prefix+name.
// A variable that is set, even to the empty string, counts as defined.
type Env struct {
	Prefix string
}

func (e Env) Lookup(name string) (any, bool) {
	v, ok := os.LookupEnv(e.Prefix + name)
	if !ok {
		return nil, false
	}
	return v, true
}

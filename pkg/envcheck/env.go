package envcheck

import "os"

// EnvGetter looks up environment variables.
type EnvGetter interface {
	LookupEnv(key string) (string, bool)
}

type RealEnvGetter struct{}

func (r *RealEnvGetter) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv is an EnvGetter backed by a map.
type MapEnv map[string]string

func (m MapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

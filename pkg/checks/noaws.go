//go:build noaws

package checks

import (
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/registry"
)

func init() {
	builtin = append(builtin, func(r *registry.Registry, _ config.Settings) error {
		return r.Unavailable("AWS checks are not included in this build", awsTypeNames...)
	})
}

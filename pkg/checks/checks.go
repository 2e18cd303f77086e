// Package checks assembles the registry of every built-in check type.
package checks

import (
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/envcheck"
	"github.com/geomancy/geo/pkg/execcheck"
	"github.com/geomancy/geo/pkg/pathcheck"
	"github.com/geomancy/geo/pkg/pkgcheck"
	"github.com/geomancy/geo/pkg/platformcheck"
	"github.com/geomancy/geo/pkg/registry"
)

type registerFunc func(*registry.Registry, config.Settings) error

// builtin lists the registration functions compiled into the binary.
// Optional families append to it from build-tagged files.
var builtin = []registerFunc{
	envcheck.Register,
	pathcheck.Register,
	execcheck.Register,
	platformcheck.Register,
	pkgcheck.Register,
}

// awsTypeNames are the names and aliases of the AWS check family. Builds
// without it mark them unavailable so configuration using them is rejected.
var awsTypeNames = []string{
	"CheckAwsS3", "checkAWSS3", "checkAwsS3", "CheckAWSS3", "checkS3", "CheckS3",
	"CheckAwsIam", "checkAwsIam", "CheckAWSIAM", "checkIAM",
	"CheckAwsSsmParameter", "checkSsmParameter", "checkSsmParam", "checkAWSSSMParameter",
}

// NewRegistry returns a registry holding the grouping type and every
// built-in check type, configured from s.
func NewRegistry(s config.Settings) (*registry.Registry, error) {
	r := registry.New()
	for _, register := range builtin {
		if err := register(r, s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

//go:build !noaws

package checks

import "github.com/geomancy/geo/pkg/awscheck"

func init() {
	builtin = append(builtin, awscheck.Register)
}

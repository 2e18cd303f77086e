// Package awscheck checks AWS resources: S3 buckets, IAM credentials and
// SSM parameters.
package awscheck

import (
	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/config"
	"github.com/geomancy/geo/pkg/registry"
)

// Register adds the AWS check types to r, using the SDK's shared
// configuration for credentials.
func Register(r *registry.Registry, s config.Settings) error {
	return register(r, s, NewSDKProvider(), DefaultParameterCache)
}

func register(r *registry.Registry, s config.Settings, provider Provider, cache *ParameterCache) error {
	types := []registry.Type{
		{
			Name:    "CheckAwsS3",
			Aliases: []string{"checkAWSS3", "checkAwsS3", "CheckAWSS3", "checkS3", "CheckS3"},
			New: func(name string, value any, args map[string]any) (check.Checker, error) {
				opts := S3Options{Profile: s.AWS.Profile, Timeout: s.Timeout}
				if err := check.DecodeOptions(name, args, &opts); err != nil {
					return nil, err
				}
				return NewS3(name, value, opts, provider)
			},
		},
		{
			Name:    "CheckAwsIam",
			Aliases: []string{"checkAwsIam", "CheckAWSIAM", "checkIAM"},
			New: func(name string, value any, args map[string]any) (check.Checker, error) {
				opts := IAMOptions{Profile: s.AWS.Profile, KeyAge: s.AWS.KeyAge, Timeout: s.Timeout}
				if err := check.DecodeOptions(name, args, &opts); err != nil {
					return nil, err
				}
				return NewIAM(name, value, opts, provider)
			},
		},
		{
			Name:    "CheckAwsSsmParameter",
			Aliases: []string{"checkSsmParameter", "checkSsmParam", "checkAWSSSMParameter"},
			New: func(name string, value any, args map[string]any) (check.Checker, error) {
				opts := SSMOptions{Profile: s.AWS.Profile, Type: s.AWS.SSMType, Timeout: s.Timeout}
				if err := check.DecodeOptions(name, args, &opts); err != nil {
					return nil, err
				}
				return NewSSMParameter(name, value, opts, provider, cache)
			},
		},
	}

	for _, t := range types {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

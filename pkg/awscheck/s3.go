package awscheck

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/pool"
)

// S3Options are the keys accepted next to a checkS3 value.
type S3Options struct {
	check.Options `mapstructure:",squash"`
	Profile       string        `mapstructure:"profile"`
	Private       *bool         `mapstructure:"private"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// S3Check verifies a bucket: that it is reachable and, unless private is
// false, that it is not publicly accessible.
type S3Check struct {
	check.Node
}

// NewS3 returns the bucket composite. Its children run in order and stop
// at the first failure.
func NewS3(name string, value any, opts S3Options, provider Provider) (*S3Check, error) {
	if _, ok := value.(string); !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkS3 value must be a bucket name, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}

	s := &session{provider: provider, profile: opts.Profile, timeout: opts.Timeout}
	leafOpts := check.Options{Substitute: opts.Substitute}

	access, err := check.New(name+"Access", value, nil, leafOpts)
	if err != nil {
		return nil, err
	}
	children := []check.Checker{&BucketAccess{Node: *access, session: s}}

	if opts.Private == nil || *opts.Private {
		private, err := check.New(name+"Private", value, nil, leafOpts)
		if err != nil {
			return nil, err
		}
		children = append(children, &BucketPrivate{Node: *private, session: s})
	}

	n, err := check.New(name, value, children, opts.Options)
	if err != nil {
		return nil, err
	}
	return &S3Check{Node: *n}, nil
}

// Evaluate runs the bucket checks in sequence.
func (c *S3Check) Evaluate(r pool.Runner, depth int) *check.Outcome {
	return c.EvaluateSequential(r, depth)
}

// BucketAccess checks that the bucket exists and the caller may use it.
type BucketAccess struct {
	check.Node
	session *session
}

// Evaluate executes the access check.
func (c *BucketAccess) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	bucket := strings.TrimSpace(c.ValueString())
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check AWS S3 bucket access '%s'", bucket)))
	if bucket == "" {
		return out.Fail("invalid bucket name")
	}

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}
	if _, err := clients.S3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return out.Fail(describe(err))
	}
	return out.Pass()
}

// BucketPrivate checks that neither the bucket policy nor its ACL grant
// public access. A public access block covering policies and ACLs is
// enough on its own.
type BucketPrivate struct {
	check.Node
	session *session
}

// Evaluate executes the privacy check.
func (c *BucketPrivate) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	bucket := strings.TrimSpace(c.ValueString())
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check AWS S3 bucket private '%s'", bucket)))

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}

	block, err := clients.S3.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: aws.String(bucket)})
	switch {
	case err == nil:
		if cfg := block.PublicAccessBlockConfiguration; cfg != nil &&
			aws.ToBool(cfg.BlockPublicPolicy) && aws.ToBool(cfg.BlockPublicAcls) {
			out.AddDetail("public access blocked")
			return out.Pass()
		}
	case errorCode(err) == "NoSuchPublicAccessBlockConfiguration":
	default:
		return out.Fail("couldn't access PublicAccessBlock")
	}
	slog.Debug("bucket does not block all public access", "bucket", bucket)

	publicPolicy := false
	if status, err := clients.S3.GetBucketPolicyStatus(ctx, &s3.GetBucketPolicyStatusInput{Bucket: aws.String(bucket)}); err == nil {
		publicPolicy = status.PolicyStatus != nil && aws.ToBool(status.PolicyStatus.IsPublic)
	}

	publicACL := false
	if acl, err := clients.S3.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)}); err == nil {
		for _, grant := range acl.Grants {
			if grant.Grantee != nil && grant.Grantee.Type == s3types.TypeGroup {
				publicACL = true
				break
			}
		}
	}
	slog.Debug("bucket access", "bucket", bucket, "public_policy", publicPolicy, "public_acl", publicACL)

	if publicPolicy || publicACL {
		return out.Fail("publicly accessible")
	}
	return out.Pass()
}

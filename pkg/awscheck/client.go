package awscheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// S3API is the subset of the S3 client used by the bucket checks.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3.GetPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error)
	GetBucketPolicyStatus(ctx context.Context, params *s3.GetBucketPolicyStatusInput, optFns ...func(*s3.Options)) (*s3.GetBucketPolicyStatusOutput, error)
	GetBucketAcl(ctx context.Context, params *s3.GetBucketAclInput, optFns ...func(*s3.Options)) (*s3.GetBucketAclOutput, error)
}

// STSAPI is the subset of the STS client used to identify the caller.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IAMAPI is the subset of the IAM client used by the account checks.
type IAMAPI interface {
	GetAccountSummary(ctx context.Context, params *iam.GetAccountSummaryInput, optFns ...func(*iam.Options)) (*iam.GetAccountSummaryOutput, error)
	ListAccessKeys(ctx context.Context, params *iam.ListAccessKeysInput, optFns ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error)
}

// SSMAPI is the subset of the SSM client used by the parameter check.
type SSMAPI interface {
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
}

// Clients bundles the service clients for one profile.
type Clients struct {
	S3  S3API
	STS STSAPI
	IAM IAMAPI
	SSM SSMAPI
}

// Provider returns clients for a named profile. An empty profile selects
// the default credential chain.
type Provider interface {
	Clients(ctx context.Context, profile string) (*Clients, error)
}

// SDKProvider builds clients from the shared AWS configuration and keeps
// them per profile.
type SDKProvider struct {
	mu      sync.Mutex
	clients map[string]*Clients
}

// NewSDKProvider returns a provider backed by the AWS SDK.
func NewSDKProvider() *SDKProvider {
	return &SDKProvider{clients: make(map[string]*Clients)}
}

// Clients loads the configuration for profile on first use.
func (p *SDKProvider) Clients(ctx context.Context, profile string) (*Clients, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[profile]; ok {
		return c, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded AWS configuration", "profile", profile, "region", cfg.Region)

	c := &Clients{
		S3:  s3.NewFromConfig(cfg),
		STS: sts.NewFromConfig(cfg),
		IAM: iam.NewFromConfig(cfg),
		SSM: ssm.NewFromConfig(cfg),
	}
	p.clients[profile] = c
	return c, nil
}

// session is what the leaves of one composite share: where clients come
// from, which profile to use and how long a probe may take.
type session struct {
	provider Provider
	profile  string
	timeout  time.Duration
}

func (s *session) context() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(context.Background(), s.timeout)
	}
	return context.WithCancel(context.Background())
}

func (s *session) clients(ctx context.Context) (*Clients, error) {
	return s.provider.Clients(ctx, s.profile)
}

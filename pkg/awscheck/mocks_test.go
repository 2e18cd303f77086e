package awscheck

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type mockS3 struct {
	headErr      error
	block        *s3.GetPublicAccessBlockOutput
	blockErr     error
	policy       *s3.GetBucketPolicyStatusOutput
	policyErr    error
	acl          *s3.GetBucketAclOutput
	aclErr       error
	headedBucket string
}

func (m *mockS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	m.headedBucket = *in.Bucket
	if m.headErr != nil {
		return nil, m.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *mockS3) GetPublicAccessBlock(context.Context, *s3.GetPublicAccessBlockInput, ...func(*s3.Options)) (*s3.GetPublicAccessBlockOutput, error) {
	return m.block, m.blockErr
}

func (m *mockS3) GetBucketPolicyStatus(context.Context, *s3.GetBucketPolicyStatusInput, ...func(*s3.Options)) (*s3.GetBucketPolicyStatusOutput, error) {
	return m.policy, m.policyErr
}

func (m *mockS3) GetBucketAcl(context.Context, *s3.GetBucketAclInput, ...func(*s3.Options)) (*s3.GetBucketAclOutput, error) {
	return m.acl, m.aclErr
}

type mockSTS struct {
	out   *sts.GetCallerIdentityOutput
	err   error
	calls atomic.Int32
}

func (m *mockSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	m.calls.Add(1)
	return m.out, m.err
}

type mockIAM struct {
	summary    *iam.GetAccountSummaryOutput
	summaryErr error
	keys       *iam.ListAccessKeysOutput
	keysErr    error
}

func (m *mockIAM) GetAccountSummary(context.Context, *iam.GetAccountSummaryInput, ...func(*iam.Options)) (*iam.GetAccountSummaryOutput, error) {
	return m.summary, m.summaryErr
}

func (m *mockIAM) ListAccessKeys(context.Context, *iam.ListAccessKeysInput, ...func(*iam.Options)) (*iam.ListAccessKeysOutput, error) {
	if m.keysErr != nil {
		return nil, m.keysErr
	}
	if m.keys == nil {
		return &iam.ListAccessKeysOutput{}, nil
	}
	return m.keys, nil
}

type mockSSM struct {
	pages []*ssm.DescribeParametersOutput
	err   error
	calls atomic.Int32
}

func (m *mockSSM) DescribeParameters(_ context.Context, in *ssm.DescribeParametersInput, _ ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	page := 0
	if in.NextToken != nil {
		page = int((*in.NextToken)[0] - '0')
	}
	return m.pages[page], nil
}

type mockProvider struct {
	clients *Clients
	err     error
	profile string
}

func (p *mockProvider) Clients(_ context.Context, profile string) (*Clients, error) {
	p.profile = profile
	return p.clients, p.err
}

func responseError(status int) error {
	return &awshttp.ResponseError{
		ResponseError: &smithyhttp.ResponseError{
			Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
			Err:      errors.New(http.StatusText(status)),
		},
	}
}

package awscheck

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/pool"
)

// IAMOptions are the keys accepted next to a checkIAM value.
type IAMOptions struct {
	check.Options `mapstructure:",squash"`
	Profile       string        `mapstructure:"profile"`
	KeyAge        int           `mapstructure:"key_age"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// IAMCheck verifies the account credentials: that they authenticate, that
// the root user has no access keys and that active keys are not too old.
type IAMCheck struct {
	check.Node
}

// NewIAM returns the IAM composite. Its children run in order and stop at
// the first failure.
func NewIAM(name string, value any, opts IAMOptions, provider Provider) (*IAMCheck, error) {
	if opts.KeyAge <= 0 {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("key_age must be positive, got %d", opts.KeyAge),
			Err: check.ErrInvalidValue,
		}
	}

	s := &session{provider: provider, profile: opts.Profile, timeout: opts.Timeout}

	auth, err := check.New(name+"Authentication", nil, nil, check.Options{})
	if err != nil {
		return nil, err
	}
	root, err := check.New(name+"RootAccess", nil, nil, check.Options{})
	if err != nil {
		return nil, err
	}
	age, err := check.New(name+"AccessKeyAge", opts.KeyAge, nil, check.Options{})
	if err != nil {
		return nil, err
	}

	n, err := check.New(name, value, []check.Checker{
		&Authentication{Node: *auth, session: s},
		&RootAccess{Node: *root, session: s},
		&AccessKeyAge{Node: *age, MaxAge: opts.KeyAge, session: s, now: time.Now},
	}, opts.Options)
	if err != nil {
		return nil, err
	}
	return &IAMCheck{Node: *n}, nil
}

// Evaluate runs the IAM checks in sequence.
func (c *IAMCheck) Evaluate(r pool.Runner, depth int) *check.Outcome {
	return c.EvaluateSequential(r, depth)
}

// Authentication checks that the credentials identify a caller.
type Authentication struct {
	check.Node
	session *session
}

// Evaluate executes the authentication check.
func (c *Authentication) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	out := check.NewOutcome(c.Name, c.Describe("Check AWS IAM authentication"))

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}
	id, err := clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return out.Fail(describe(err))
	}
	if id.Arn == nil {
		return out.Fail("could not verify identity with STS")
	}
	out.AddDetailf("arn: %s", aws.ToString(id.Arn))
	return out.Pass()
}

// RootAccess checks that the account root user has no access keys or
// signing certificates.
type RootAccess struct {
	check.Node
	session *session
}

// Evaluate executes the root access check.
func (c *RootAccess) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	out := check.NewOutcome(c.Name, c.Describe("Check AWS IAM root keys are not present"))

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}
	summary, err := clients.IAM.GetAccountSummary(ctx, &iam.GetAccountSummaryInput{})
	if err != nil {
		return out.Fail(describe(err))
	}

	keys, okKeys := summary.SummaryMap["AccountAccessKeysPresent"]
	certs, okCerts := summary.SummaryMap["AccountSigningCertificatesPresent"]
	if !okKeys || !okCerts {
		return out.Fail("could not retrieve account summary")
	}

	var problems []string
	if keys != 0 {
		problems = append(problems, "account has root access keys")
	}
	if certs != 0 {
		problems = append(problems, "account has signing certificates")
	}
	if len(problems) > 0 {
		return out.Fail(strings.Join(problems, " and "))
	}
	return out.Pass()
}

// AccessKeyAge checks that every active access key of the caller is at
// most MaxAge days old.
type AccessKeyAge struct {
	check.Node
	MaxAge int

	session *session
	now     func() time.Time
}

// Evaluate executes the key age check.
func (c *AccessKeyAge) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check AWS IAM access key age (%d days)", c.MaxAge)))

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}

	var keys []iamtypes.AccessKeyMetadata
	p := iam.NewListAccessKeysPaginator(clients.IAM, &iam.ListAccessKeysInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return out.Fail(describe(err))
		}
		keys = append(keys, page.AccessKeyMetadata...)
	}

	now := c.now()
	oldestID, oldest := "", -1
	for _, k := range keys {
		if k.Status != iamtypes.StatusTypeActive || k.CreateDate == nil {
			continue
		}
		if days := int(now.Sub(*k.CreateDate).Hours() / 24); days > oldest {
			oldestID, oldest = aws.ToString(k.AccessKeyId), days
		}
	}

	if oldest < 0 {
		out.AddDetail("no active access keys")
		return out.Pass()
	}
	out.AddDetailf("oldest key: %s (%d days)", oldestID, oldest)
	if oldest > c.MaxAge {
		return out.Failf("%d days", oldest)
	}
	return out.Pass()
}

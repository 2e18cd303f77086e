package awscheck

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/sync/singleflight"

	"github.com/geomancy/geo/pkg/check"
	"github.com/geomancy/geo/pkg/pool"
)

// ParameterTypes are the accepted values of the type option.
var ParameterTypes = []string{"String", "StringList", "SecureString"}

// SSMOptions are the keys accepted next to a checkSsmParameter value.
type SSMOptions struct {
	check.Options `mapstructure:",squash"`
	Profile       string        `mapstructure:"profile"`
	Type          string        `mapstructure:"type"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SSMParameter checks that a parameter exists and has the expected type.
type SSMParameter struct {
	check.Node
	Type string

	session *session
	cache   *ParameterCache
}

// NewSSMParameter returns a parameter check reading listings from cache.
func NewSSMParameter(name string, value any, opts SSMOptions, provider Provider, cache *ParameterCache) (*SSMParameter, error) {
	if _, ok := value.(string); !ok {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("checkSsmParameter value must be a parameter name, got %T", value),
			Err: check.ErrInvalidValue,
		}
	}
	if !slices.Contains(ParameterTypes, opts.Type) {
		return nil, &check.ConfigError{
			Op:  name,
			Msg: fmt.Sprintf("parameter type %q not in %v", opts.Type, ParameterTypes),
			Err: check.ErrInvalidValue,
		}
	}

	n, err := check.New(name, value, nil, opts.Options)
	if err != nil {
		return nil, err
	}
	return &SSMParameter{
		Node:    *n,
		Type:    opts.Type,
		session: &session{provider: provider, profile: opts.Profile, timeout: opts.Timeout},
		cache:   cache,
	}, nil
}

// Evaluate executes the parameter check.
func (c *SSMParameter) Evaluate(_ pool.Runner, _ int) *check.Outcome {
	param := strings.TrimSpace(c.ValueString())
	out := check.NewOutcome(c.Name, c.Describe(fmt.Sprintf("Check AWS SSM parameter access '%s'", param)))

	ctx, cancel := c.session.context()
	defer cancel()

	clients, err := c.session.clients(ctx)
	if err != nil {
		return out.Fail(describe(err))
	}
	params, err := c.cache.Parameters(ctx, clients)
	if err != nil {
		return out.Fail(describe(err))
	}

	typ, ok := params[param]
	if !ok {
		return out.Failf("could not find '%s'", param)
	}
	if typ != c.Type {
		return out.Failf("parameter '%s' has wrong type '%s'", param, typ)
	}
	return out.Pass()
}

// ParameterCache holds parameter listings (name to type) per caller
// identity, so checks against the same account list parameters once.
type ParameterCache struct {
	mu         sync.Mutex
	byIdentity map[string]map[string]string
	group      singleflight.Group
}

// NewParameterCache returns an empty cache.
func NewParameterCache() *ParameterCache {
	return &ParameterCache{byIdentity: make(map[string]map[string]string)}
}

// DefaultParameterCache is shared by the parameter checks of a process.
var DefaultParameterCache = NewParameterCache()

// Parameters returns the parameter listing visible to clients.
func (c *ParameterCache) Parameters(ctx context.Context, clients *Clients) (map[string]string, error) {
	id, err := clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, err
	}
	identity := aws.ToString(id.Arn)

	if params, ok := c.lookup(identity); ok {
		slog.Debug("SSM parameter cache hit", "identity", identity)
		return params, nil
	}

	v, err, _ := c.group.Do(identity, func() (any, error) {
		if params, ok := c.lookup(identity); ok {
			return params, nil
		}
		params, err := listParameters(ctx, clients.SSM)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byIdentity[identity] = params
		c.mu.Unlock()
		slog.Debug("listed SSM parameters", "identity", identity, "count", len(params))
		return params, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func (c *ParameterCache) lookup(identity string) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	params, ok := c.byIdentity[identity]
	return params, ok
}

// Reset drops every cached listing.
func (c *ParameterCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byIdentity = make(map[string]map[string]string)
}

func listParameters(ctx context.Context, client SSMAPI) (map[string]string, error) {
	params := make(map[string]string)
	p := ssm.NewDescribeParametersPaginator(client, &ssm.DescribeParametersInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, meta := range page.Parameters {
			params[aws.ToString(meta.Name)] = string(meta.Type)
		}
	}
	return params, nil
}

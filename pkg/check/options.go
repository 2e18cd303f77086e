package check

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Options are the keyword arguments every check accepts. Leaf option structs
// embed it with `mapstructure:",squash"`.
type Options struct {
	Desc       string `mapstructure:"desc"`
	Condition  string `mapstructure:"condition"`
	Substitute *bool  `mapstructure:"substitute"`
}

// optionAliases maps accepted alternate keys to their canonical name.
var optionAliases = map[string]string{
	"description":    "desc",
	"aggregation":    "condition",
	"env_substitute": "substitute",
}

// DecodeOptions decodes args into target, a pointer to an options struct.
// Scalars are converted weakly ("true" -> true, "5s" -> 5*time.Second) and
// keys the target does not declare are a *ConfigError.
func DecodeOptions(op string, args map[string]any, target any) error {
	normalised := make(map[string]any, len(args))
	for k, v := range args {
		key := k
		if canonical, ok := optionAliases[k]; ok {
			key = canonical
		}
		if _, dup := normalised[key]; dup {
			return &ConfigError{Op: op, Msg: fmt.Sprintf("option %q given more than once", key)}
		}
		normalised[key] = v
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		Metadata:         &md,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			DurationHook(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return &ConfigError{Op: op, Err: err}
	}
	if err := dec.Decode(normalised); err != nil {
		return &ConfigError{Op: op, Msg: "decode options", Err: err}
	}

	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return &ConfigError{
			Op:  op,
			Msg: strings.Join(md.Unused, ", "),
			Err: ErrUnknownOption,
		}
	}
	return nil
}

// DurationHook decodes time.Duration fields. Strings use time.ParseDuration
// syntax ("500ms", "1m30s"); bare numbers, and strings holding one, are
// seconds. Negative durations are rejected.
func DurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}

		var d time.Duration
		v := reflect.ValueOf(data)
		switch v.Kind() {
		case reflect.String:
			s := strings.TrimSpace(v.String())
			if secs, err := strconv.ParseFloat(s, 64); err == nil {
				return checkedSeconds(secs)
			}
			parsed, err := time.ParseDuration(s)
			if err != nil {
				return nil, err
			}
			d = parsed
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if _, ok := data.(time.Duration); ok {
				d = time.Duration(v.Int())
				break
			}
			return checkedSeconds(float64(v.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return checkedSeconds(float64(v.Uint()))
		case reflect.Float32, reflect.Float64:
			return checkedSeconds(v.Float())
		case reflect.Bool:
			return nil, fmt.Errorf("expected a duration, got %v", data)
		default:
			return data, nil
		}

		return checkedDuration(d)
	}
}

func checkedSeconds(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/float64(time.Second) {
		return nil, fmt.Errorf("duration %v out of range", f)
	}
	return checkedDuration(time.Duration(f * float64(time.Second)))
}

func checkedDuration(d time.Duration) (any, error) {
	if d < 0 {
		return nil, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return d, nil
}

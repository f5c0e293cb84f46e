package validation

import (
	"fmt"
	"sort"
)

// Kind names a value syntax a form field is checked against.
type Kind string

const (
	KindNone      Kind = ""
	KindIPv4      Kind = "ipv4"
	KindIPv4CIDR  Kind = "ipv4cidr"
	KindMAC       Kind = "mac"
	KindTime      Kind = "time"
	KindPort      Kind = "port"
	KindPortRange Kind = "portrange"
	KindDomain    Kind = "domain"
	KindOneOf     Kind = "oneof"
)

// Validators maps each free-text kind to its check. KindOneOf is absent
// because it needs the field's option list; see Check.
var Validators = map[Kind]func(string) error{
	KindIPv4:      ValidateIPv4,
	KindIPv4CIDR:  ValidateIPv4OrCIDR,
	KindMAC:       ValidateMAC,
	KindTime:      ValidateTimeOfDay,
	KindPort:      ValidatePort,
	KindPortRange: ValidatePortRange,
	KindDomain:    ValidateDomainOrURL,
}

// Kinds returns every known kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(Validators)+1)
	for k := range Validators {
		out = append(out, k)
	}
	out = append(out, KindOneOf)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatError reports a field whose value does not match its syntax.
type FormatError struct {
	Field   string
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Check validates one field value. Empty input is never a format error;
// missing mandatory values are the caller's concern. options is only
// consulted for KindOneOf.
func Check(kind Kind, field, value string, options ...string) *FormatError {
	if value == "" || kind == KindNone {
		return nil
	}

	var err error
	if kind == KindOneOf {
		err = ValidateOneOf(value, options)
	} else {
		fn, ok := Validators[kind]
		if !ok {
			return &FormatError{Field: field, Message: fmt.Sprintf("unknown validator %q", kind)}
		}
		err = fn(value)
	}
	if err != nil {
		return &FormatError{Field: field, Message: err.Error()}
	}
	return nil
}

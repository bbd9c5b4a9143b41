package oracle

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/celviz/pkg/value"
)

// Verdict is the outcome of one comparison.
type Verdict struct {
	Source       string
	Ours         value.Value
	OursErr      error
	Reference    value.Value
	ReferenceErr error
}

// Unsupported reports whether cel-go could not run the source at all.
func (v Verdict) Unsupported() bool {
	return errors.Is(v.ReferenceErr, ErrUnsupported)
}

// Agree reports whether both sides failed, or both produced equal values.
// Error messages are not compared.
func (v Verdict) Agree() bool {
	if v.Unsupported() {
		return false
	}
	if v.OursErr != nil || v.ReferenceErr != nil {
		return v.OursErr != nil && v.ReferenceErr != nil
	}
	return value.Equal(v.Ours, v.Reference)
}

func outcome(val value.Value, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return val.String()
}

func (v Verdict) String() string {
	status := "agree"
	switch {
	case v.Unsupported():
		status = "unsupported"
	case !v.Agree():
		status = "disagree"
	}
	return fmt.Sprintf("%s\n  celviz:    %s\n  reference: %s",
		status, outcome(v.Ours, v.OursErr), outcome(v.Reference, v.ReferenceErr))
}

package metrics

import (
	"errors"
	"strings"

	"github.com/dozerworks/hopper"
)

func outcomeLabel(o hopper.Outcome) string {
	if o.Success {
		return "success"
	}
	return strings.ReplaceAll(o.Reason.String(), " ", "_")
}

func verdictLabel(v hopper.Verdict) string {
	return strings.ReplaceAll(v.String(), " ", "_")
}

func errLabel(err error) string {
	var divErr *hopper.DivergedError
	switch {
	case errors.As(err, &divErr):
		return "diverged"
	case errors.Is(err, hopper.ErrInvalidParameters):
		return "invalid"
	}
	return "error"
}

package core

import (
	"fmt"

	"github.com/dkeye/imposter/internal/domain"
)

func errSettings(field string, lo, hi int) error {
	return &domain.Error{
		Code:    domain.CodeSettingsOutOfRange,
		Message: fmt.Sprintf("%s must be between %d and %d", field, lo, hi),
	}
}

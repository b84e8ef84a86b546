package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/spacedrep/internal/domain"
)

// CreateCardInput is the content of a newly authored card.
type CreateCardInput struct {
	UserID  string `json:"-" validate:"required,max=128"`
	Front   string `json:"front" validate:"required,max=4000"`
	Back    string `json:"back" validate:"required,max=4000"`
	Context string `json:"context" validate:"max=1000"`
}

// SubmitReviewInput is one review outcome for a card.
type SubmitReviewInput struct {
	UserID   string          `json:"-" validate:"required,max=128"`
	CardID   string          `json:"-" validate:"required,max=64"`
	Response domain.Response `json:"response"`
}

// validationError turns validator output into an ErrInvalidInput error
// naming the offending fields.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

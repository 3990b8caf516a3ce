package handlers

import (
	"github.com/go-playground/validator/v10"
)

// payloadValidator is shared across handlers; validator.Validate caches
// struct metadata and is safe for concurrent use.
var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

func validatePayload(payload any) error {
	return payloadValidator.Struct(payload)
}

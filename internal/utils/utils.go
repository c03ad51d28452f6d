package utils

import (
	"gopkg.in/go-playground/validator.v9"
)

//Validate Shared validator of config structs and request payloads.
var Validate = validator.New()

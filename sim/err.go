package sim

import (
	"errors"

	"github.com/ezrec/cppbus/translate"
)

var f = translate.From

var (
	// Device errors
	ErrTargetUnknown  = errors.New(f("target not populated"))
	ErrAddressInvalid = errors.New(f("address outside target memory"))
	ErrAccessInvalid  = errors.New(f("access width invalid"))
)

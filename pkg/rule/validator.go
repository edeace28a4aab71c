// Package rule wraps go-playground/validator for struct and field checks,
// using the `rule` struct tag.
package rule

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

var (
	videoNameRe   = regexp.MustCompile(`^video\d+\.mp4$`)
	sidecarNameRe = regexp.MustCompile(`^video\d+\.xml$`)
)

// initValidator reuses gin's validator engine when available so binding and
// explicit checks agree, then registers the domain rules.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
			inst.SetTagName("rule")

			registerDomainRules()

			return
		}
	}

	inst = validator.New()
	inst.SetTagName("rule")

	registerDomainRules()
}

// registerDomainRules adds the videoN filename rules used across handlers.
func registerDomainRules() {
	_ = inst.RegisterValidation("videofile", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)

		return ok && videoNameRe.MatchString(s)
	})

	_ = inst.RegisterValidation("xmlfile", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)

		return ok && sidecarNameRe.MatchString(s)
	})
}

// lazyInit initializes the global validator (idempotent).
func lazyInit() {
	once.Do(initValidator)
}

// Engine returns the global *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation proxies RegisterValidation on the global engine.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidateStruct runs full validation over a struct.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar validates a single value, e.g. ValidateVar(name, "videofile").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

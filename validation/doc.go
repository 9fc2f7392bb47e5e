// Package validation validates configuration sections.
//
// Struct tags are checked with go-playground/validator, using mapstructure
// key names in messages so they match the config file:
//
//	type Config struct {
//	    Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
//	}
//	err := validation.Validate(&cfg)
//
// Cross-field rules use the fluent Validator:
//
//	err := validation.New().
//	    OneOf("model.backend", c.Backend, backends).
//	    Custom(c.Dimension > 0, "model.dimension", "must be positive").
//	    Validate()
package validation

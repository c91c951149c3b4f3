// Package validation checks configuration and pipeline definitions.
//
// Struct tag validation uses the validator library. Field names in messages
// follow the yaml tag, then the json tag, of each field:
//
//	type Adapter struct {
//	    SubscribeTimeout time.Duration `yaml:"subscribe_timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation collects errors for inputs that are not structs:
//
//	v := validation.New()
//	v.Required("input.type", def.Input.Type)
//	v.Identifier("input.name", def.Input.Name)
//	err := v.Err()
//
// Both report failures as INVALID_INPUT errors whose "fields" detail lists
// every failing field.
package validation

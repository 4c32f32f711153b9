package configs

import "reflect"

// Configurable marks typed config values that settings scripts may
// override. The name of the implementing type is the name visible to
// scripts.
type Configurable interface {
	GrexConfigurable()
}

var configurableType = reflect.TypeFor[Configurable]()

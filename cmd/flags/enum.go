// Package flags holds cli flag helpers shared by the node's commands.
package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

// EnumValue is a string flag value restricted to a fixed set of choices.
type EnumValue struct {
	Name        string
	Usage       string
	Destination *string
	Enum        []string
	Value       string
}

// Set accepts value only if it is one of the choices.
func (e *EnumValue) Set(value string) error {
	for _, enum := range e.Enum {
		if enum == value {
			*e.Destination = value
			return nil
		}
	}
	return fmt.Errorf("allowed values are %s", strings.Join(e.Enum, ", "))
}

func (e *EnumValue) String() string {
	if e.Destination == nil || *e.Destination == "" {
		return e.Value
	}
	return *e.Destination
}

// GenericFlag wraps the EnumValue so that it satisfies the cli.Flag interface.
func (e EnumValue) GenericFlag() *cli.GenericFlag {
	if e.Destination == nil {
		e.Destination = new(string)
	}
	*e.Destination = e.Value
	var i cli.Generic = &e
	return &cli.GenericFlag{
		Name:  e.Name,
		Usage: fmt.Sprintf("%s (%s)", e.Usage, strings.Join(e.Enum, ", ")),
		Value: i,
	}
}

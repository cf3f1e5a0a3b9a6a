package binding

import (
	"fmt"

	"github.com/c360/uistream/errors"
)

// Mode is a binding direction
type Mode string

// Binding directions. OneWay flows model to widget, OneWayToSource flows
// widget to model, TwoWay flows both.
const (
	ModeOneWay         Mode = "oneWay"
	ModeTwoWay         Mode = "twoWay"
	ModeOneWayToSource Mode = "oneWayToSource"
)

func parseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeOneWay, ModeTwoWay, ModeOneWayToSource:
		return Mode(raw), nil
	}
	return "", errors.NewMessageParseError("unrecognized binding mode: "+raw, nil)
}

// Transform converts a value crossing the binding in one direction
type Transform func(any) any

// Definition is one declarative property binding parsed from a widget's
// dataBinding spec.
type Definition struct {
	Property string
	Path     Path
	Mode     Mode
	ToWidget Transform
	ToModel  Transform
}

// ReadsModel reports whether model changes flow to the widget
func (d Definition) ReadsModel() bool {
	return d.Mode == ModeOneWay || d.Mode == ModeTwoWay
}

// WritesModel reports whether widget changes flow to the model
func (d Definition) WritesModel() bool {
	return d.Mode == ModeTwoWay || d.Mode == ModeOneWayToSource
}

// ParseSpec parses a raw dataBinding wire value into definitions. Three
// shapes are accepted: a bare path string (one-way onto property "value"),
// a map of property name to path string, and a map of property name to
// {path, mode} objects.
func ParseSpec(raw any) ([]Definition, error) {
	switch spec := raw.(type) {
	case string:
		path, err := Parse(spec)
		if err != nil {
			return nil, err
		}
		return []Definition{{Property: "value", Path: path, Mode: ModeOneWay}}, nil

	case map[string]any:
		defs := make([]Definition, 0, len(spec))
		for property, entry := range spec {
			def, err := parseEntry(property, entry)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
		return defs, nil
	}
	return nil, errors.NewMessageParseError(fmt.Sprintf("unsupported dataBinding shape: %T", raw), nil)
}

func parseEntry(property string, entry any) (Definition, error) {
	switch e := entry.(type) {
	case string:
		path, err := Parse(e)
		if err != nil {
			return Definition{}, err
		}
		return Definition{Property: property, Path: path, Mode: ModeOneWay}, nil

	case map[string]any:
		rawPath, ok := e["path"].(string)
		if !ok || rawPath == "" {
			return Definition{}, errors.NewMessageParseError("binding entry for "+property+" missing path", nil)
		}
		path, err := Parse(rawPath)
		if err != nil {
			return Definition{}, err
		}

		mode := ModeOneWay
		if rawMode, present := e["mode"]; present {
			str, ok := rawMode.(string)
			if !ok {
				return Definition{}, errors.NewMessageParseError("binding mode for "+property+" is not a string", nil)
			}
			mode, err = parseMode(str)
			if err != nil {
				return Definition{}, err
			}
		}
		return Definition{Property: property, Path: path, Mode: mode}, nil
	}
	return Definition{}, errors.NewMessageParseError(fmt.Sprintf("unsupported binding entry for %s: %T", property, entry), nil)
}

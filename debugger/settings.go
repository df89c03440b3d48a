// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
	"github.com/pelletier/go-toml/v2"
)

// Settings holds the user-adjustable debugger variables. They are displayed
// and changed with the set command, and may be loaded from a TOML file.
type Settings struct {
	Prompt      string `toml:"prompt" doc:"interactive prompt"`
	HistorySize int    `toml:"history_size" doc:"number of commands kept in history"`
	HexMode     bool   `toml:"hex_mode" doc:"hexadecimal input and output mode"`
	StepLines   int    `toml:"step_lines" doc:"max lines to display when stepping"`
	EchoLog     bool   `toml:"echo_log" doc:"echo log entries as they are made"`
}

// DefaultSettings returns the settings used when none are supplied.
func DefaultSettings() *Settings {
	return &Settings{
		Prompt:      "(hbdb) ",
		HistorySize: 100,
		HexMode:     false,
		StepLines:   20,
		EchoLog:     false,
	}
}

// LoadSettings decodes TOML settings from r on top of the default
// settings. Unknown keys are rejected.
func LoadSettings(r io.Reader) (*Settings, error) {
	s := DefaultSettings()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(s); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if s.HistorySize < 0 || s.StepLines < 0 {
		return nil, errors.New("settings: negative size")
	}
	return s, nil
}

// LoadSettingsFile reads settings from a TOML file.
func LoadSettingsFile(filename string) (*Settings, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadSettings(file)
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(Settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting and its description to w.
func (s *Settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-16s \"%s\"", f.name, v.String())
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

// Kind returns the kind of the setting whose name starts with key. The
// error is prefixtree.ErrPrefixAmbiguous or prefixtree.ErrPrefixNotFound if
// key does not name exactly one setting.
func (s *Settings) Kind(key string) (reflect.Kind, error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid, err
	}
	return f.kind, nil
}

// Set assigns a value to the setting whose name starts with key.
func (s *Settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String && vIn.Type().Kind() != reflect.String) ||
		(f.kind != reflect.String && vIn.Type().Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}
	if f.kind == reflect.Int && vIn.Convert(f.typ).Int() < 0 {
		return errors.New("value must not be negative")
	}
	vInConverted := vIn.Convert(f.typ)

	vOut := reflect.ValueOf(s).Elem().Field(f.index)
	vOut.Set(vInConverted)

	return nil
}

package debugger

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/beevik/prefixtree/v2"
)

func TestLoadSettings(t *testing.T) {
	s, err := LoadSettings(strings.NewReader(`
prompt = "> "
hex_mode = true
step_lines = 5
`))
	if err != nil {
		t.Fatal(err)
	}

	exp := DefaultSettings()
	exp.Prompt, exp.HexMode, exp.StepLines = "> ", true, 5
	if *s != *exp {
		t.Errorf("settings incorrect. exp: %+v, got: %+v", *exp, *s)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	for _, src := range []string{
		`unknown_key = 1`,
		`history_size = "ten"`,
		`history_size = -1`,
		`prompt = `,
	} {
		if _, err := LoadSettings(strings.NewReader(src)); err == nil {
			t.Errorf("%q: expected error", src)
		}
	}
}

func TestSetSettings(t *testing.T) {
	s := DefaultSettings()

	if k, err := s.Kind("hi"); err != nil || k != reflect.Int {
		t.Errorf("kind incorrect. exp: int, got: %v (%v)", k, err)
	}
	if _, err := s.Kind("h"); !errors.Is(err, prefixtree.ErrPrefixAmbiguous) {
		t.Errorf("expected ambiguous error, got %v", err)
	}
	if _, err := s.Kind("n"); !errors.Is(err, prefixtree.ErrPrefixNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}

	if err := s.Set("hist", int64(10)); err != nil || s.HistorySize != 10 {
		t.Errorf("history size not set: %v", err)
	}
	if err := s.Set("prompt", "$ "); err != nil || s.Prompt != "$ " {
		t.Errorf("prompt not set: %v", err)
	}
	if err := s.Set("echo", true); err != nil || !s.EchoLog {
		t.Errorf("echo not set: %v", err)
	}

	if err := s.Set("prompt", int64(1)); err == nil {
		t.Error("expected type error")
	}
	if err := s.Set("steplines", int64(-1)); err == nil {
		t.Error("expected negative value error")
	}
	if err := s.Set("nothing", int64(1)); err == nil {
		t.Error("expected unknown setting error")
	}
}

func TestDisplaySettings(t *testing.T) {
	var b strings.Builder
	DefaultSettings().Display(&b)
	out := b.String()
	for _, want := range []string{`Prompt           "(hbdb) "`, "HistorySize      100", "(interactive prompt)"} {
		if !strings.Contains(out, want) {
			t.Errorf("display missing %q:\n%s", want, out)
		}
	}
}

func TestStringToBool(t *testing.T) {
	for _, s := range []string{"1", "true", "On"} {
		if v, err := stringToBool(s); err != nil || !v {
			t.Errorf("%s: expected true", s)
		}
	}
	for _, s := range []string{"0", "FALSE", "off"} {
		if v, err := stringToBool(s); err != nil || v {
			t.Errorf("%s: expected false", s)
		}
	}
	if _, err := stringToBool("maybe"); err == nil {
		t.Error("expected error")
	}
}

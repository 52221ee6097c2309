package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"

	"imageviewer/internal/config"
)

type command int

const (
	commandReset command = iota
	commandZoomIn
	commandZoomOut
	commandQuit
	commandAction
)

// binding is what a key press does. line is set for commandAction.
type binding struct {
	command command
	line    string
}

type keyMap map[glfw.Key]binding

var namedKeys = map[string]glfw.Key{
	"space":      glfw.KeySpace,
	"escape":     glfw.KeyEscape,
	"esc":        glfw.KeyEscape,
	"enter":      glfw.KeyEnter,
	"return":     glfw.KeyEnter,
	"tab":        glfw.KeyTab,
	"backspace":  glfw.KeyBackspace,
	"insert":     glfw.KeyInsert,
	"delete":     glfw.KeyDelete,
	"home":       glfw.KeyHome,
	"end":        glfw.KeyEnd,
	"pageup":     glfw.KeyPageUp,
	"pagedown":   glfw.KeyPageDown,
	"left":       glfw.KeyLeft,
	"right":      glfw.KeyRight,
	"up":         glfw.KeyUp,
	"down":       glfw.KeyDown,
	"=":          glfw.KeyEqual,
	"-":          glfw.KeyMinus,
	",":          glfw.KeyComma,
	".":          glfw.KeyPeriod,
	"/":          glfw.KeySlash,
	";":          glfw.KeySemicolon,
	"'":          glfw.KeyApostrophe,
	"[":          glfw.KeyLeftBracket,
	"]":          glfw.KeyRightBracket,
	"\\":         glfw.KeyBackslash,
	"`":          glfw.KeyGraveAccent,
	"kpadd":      glfw.KeyKPAdd,
	"kpsubtract": glfw.KeyKPSubtract,
	"kpmultiply": glfw.KeyKPMultiply,
	"kpdivide":   glfw.KeyKPDivide,
	"kpdecimal":  glfw.KeyKPDecimal,
	"kpenter":    glfw.KeyKPEnter,
	"kpequal":    glfw.KeyKPEqual,
}

// parseKey maps a key name from the config file to a GLFW key. Names are case
// insensitive: letters, digits, F1-F25, KP0-KP9 and the names in namedKeys.
func parseKey(name string) (glfw.Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if k, ok := namedKeys[n]; ok {
		return k, nil
	}
	if len(n) == 1 {
		switch c := n[0]; {
		case c >= 'a' && c <= 'z':
			return glfw.KeyA + glfw.Key(c-'a'), nil
		case c >= '0' && c <= '9':
			return glfw.Key0 + glfw.Key(c-'0'), nil
		}
	}
	if rest, ok := strings.CutPrefix(n, "kp"); ok && len(rest) == 1 && rest[0] >= '0' && rest[0] <= '9' {
		return glfw.KeyKP0 + glfw.Key(rest[0]-'0'), nil
	}
	if rest, ok := strings.CutPrefix(n, "f"); ok {
		if i, err := strconv.Atoi(rest); err == nil && i >= 1 && i <= 25 {
			return glfw.KeyF1 + glfw.Key(i-1), nil
		}
	}
	return glfw.KeyUnknown, fmt.Errorf("unknown key %q", name)
}

// newKeyMap builds the key table from the config. Unknown key names are
// skipped and reported together. Actions are bound last and override
// built-in commands on the same key.
func newKeyMap(keys config.Keys, actions []config.Action) (keyMap, error) {
	m := make(keyMap)
	var errs []error

	bind := func(names []string, b binding) {
		for _, name := range names {
			k, err := parseKey(name)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			m[k] = b
		}
	}

	bind(keys.Reset, binding{command: commandReset})
	bind(keys.ZoomIn, binding{command: commandZoomIn})
	bind(keys.ZoomOut, binding{command: commandZoomOut})
	bind(keys.Quit, binding{command: commandQuit})
	for _, a := range actions {
		bind([]string{a.Key}, binding{command: commandAction, line: a.Command})
	}

	return m, errors.Join(errs...)
}

package main

import (
	"context"
	"log/slog"
	"unicode"

	"github.com/eiannone/keyboard"

	"github.com/ymlaine/spectral-mesh-go/internal/control"
)

var runeKeys = map[rune]string{
	',': "Comma",
	'.': "Period",
	';': "Semicolon",
	'/': "Slash",
	'[': "BracketLeft",
	']': "BracketRight",
	'-': "Minus",
	'=': "Equal",
}

// keyName converts a terminal key event into the key names the control
// keyboard table uses. It returns "" for keys with no name.
func keyName(r rune, k keyboard.Key) string {
	switch k {
	case keyboard.KeyEnter:
		return "Enter"
	case keyboard.KeyBackspace, keyboard.KeyBackspace2:
		return "Backspace"
	case keyboard.KeyArrowUp:
		return "ArrowUp"
	case keyboard.KeyArrowDown:
		return "ArrowDown"
	}
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return string(unicode.ToUpper(r))
	case r >= '0' && r <= '9':
		return "Digit" + string(r)
	}
	return runeKeys[r]
}

// listenKeys feeds terminal key presses into kb until ctx is done. Esc and
// Ctrl-C call quit. A terminal that cannot be put into raw mode disables
// keyboard control with a warning.
func listenKeys(ctx context.Context, kb *control.Keyboard, quit func(), logger *slog.Logger) error {
	events, err := keyboard.GetKeys(16)
	if err != nil {
		logger.Warn("keyboard input disabled", "err", err)
		return nil
	}
	defer keyboard.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				logger.Warn("keyboard input error", "err", ev.Err)
				return nil
			}
			if ev.Key == keyboard.KeyEsc || ev.Key == keyboard.KeyCtrlC {
				quit()
				return nil
			}
			name := keyName(ev.Rune, ev.Key)
			if name == "" || !kb.Press(name) {
				logger.Debug("unbound key", "rune", string(ev.Rune), "key", int(ev.Key))
			}
		}
	}
}

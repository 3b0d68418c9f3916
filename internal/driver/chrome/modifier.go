package chrome

import (
	"runtime"

	"github.com/chromedp/cdproto/input"
)

func selectAllModifier() input.Modifier {
	if runtime.GOOS == "darwin" {
		return input.ModifierMeta
	}
	return input.ModifierCtrl
}

package browser

import (
	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
)

// Open opens url in the default browser. Fire and forget: a headless or
// misconfigured environment only produces a warning, the server keeps
// running either way.
func Open(url string) {
	err := browser.OpenURL(url)
	if err != nil {
		logrus.Warn("open browser: ", err)
	}
}

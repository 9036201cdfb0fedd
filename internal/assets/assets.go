// Package assets embeds the browser client served next to every article.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed client/*
var clientFS embed.FS

const (
	ClientJS  = "scrollytell.js"
	ClientCSS = "scrollytell.css"
)

var mediaTypes = map[string]string{
	".js":  "application/javascript",
	".css": "text/css",
}

// ClientFS returns the embedded client files
func ClientFS() fs.FS {
	sub, err := fs.Sub(clientFS, "client")
	if err != nil {
		panic(err)
	}
	return sub
}

// GetClientJS returns the browser script
func GetClientJS() ([]byte, error) {
	return clientFS.ReadFile("client/" + ClientJS)
}

// GetClientCSS returns the article stylesheet
func GetClientCSS() ([]byte, error) {
	return clientFS.ReadFile("client/" + ClientCSS)
}

// ContentType returns the media type for an asset name.
func ContentType(name string) string {
	if t, ok := mediaTypes[path.Ext(name)]; ok {
		return t
	}
	return "application/octet-stream"
}

var (
	minOnce  sync.Once
	minifier *minify.M
	minMu    sync.Mutex
	minCache = map[string][]byte{}
)

// Minified returns the named client asset with whitespace and comments
// stripped. Results are computed once per name.
func Minified(name string) ([]byte, error) {
	minOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("application/javascript", js.Minify)
		minifier.AddFunc("text/css", css.Minify)
	})

	minMu.Lock()
	defer minMu.Unlock()
	if b, ok := minCache[name]; ok {
		return b, nil
	}
	raw, err := fs.ReadFile(ClientFS(), name)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := minifier.Minify(ContentType(name), &out, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("minify %s: %w", name, err)
	}
	minCache[name] = out.Bytes()
	return minCache[name], nil
}

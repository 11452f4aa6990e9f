// web/web.go
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html static
var files embed.FS

// Templates 页面模板（templates/*.html）
func Templates() fs.FS {
	return files
}

// Static 静态资源，根目录为 static/
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

package renderer

import "github.com/unrolled/render"

func New(indentJSON bool) *render.Render {
	return render.New(render.Options{
		IndentJSON: indentJSON,
	})
}

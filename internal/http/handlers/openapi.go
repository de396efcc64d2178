package handlers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"
)

//go:embed openapi.json
var openAPIDocument []byte

// apiInfo is the info block of the embedded OpenAPI document.
var apiInfo = func() struct {
	Title   string `json:"title"`
	Version string `json:"version"`
} {
	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
	}
	_ = json.Unmarshal(openAPIDocument, &doc)
	if doc.Info.Title == "" {
		doc.Info.Title = "Letter Banner API"
	}
	return doc.Info
}()

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}} {{.Version}}</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; padding: 0; }
      redoc { display: block; height: 100vh; }
    </style>
  </head>
  <body>
    <redoc spec-url="{{.SpecURL}}" hide-download-button></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`))

// renderedDocs is built once; the page only depends on the embedded document.
var renderedDocs = func() []byte {
	var buf bytes.Buffer
	_ = docsPage.Execute(&buf, map[string]string{
		"Title":   apiInfo.Title,
		"Version": apiInfo.Version,
		"SpecURL": "/api/openapi.json",
	})
	return buf.Bytes()
}()

// OpenAPIJSON serves the embedded document. The version doubles as an ETag.
func (a *App) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	etag := `"` + apiInfo.Version + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if apiInfo.Version != "" && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderedDocs)
}

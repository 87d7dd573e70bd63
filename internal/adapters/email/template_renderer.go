package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"schoolevents/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// templateRenderer renders a notification from three embedded files:
// <name>_subject.txt, <name>.txt and <name>.html. All files are parsed once.
type templateRenderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// NewTemplateRenderer parses the embedded templates. It panics on a malformed
// template since they are compiled into the binary.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{
		text: texttemplate.Must(texttemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.txt")),
		html: htmltemplate.Must(htmltemplate.New("").Option("missingkey=error").ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	subject, err = r.renderText(name+"_subject.txt", data)
	if err != nil {
		return "", "", "", err
	}
	textBody, err = r.renderText(name+".txt", data)
	if err != nil {
		return "", "", "", err
	}
	if t := r.html.Lookup(name + ".html"); t != nil {
		htmlBody, err = execute(t, name+".html", data)
	} else {
		err = fmt.Errorf("template %s.html not found", name)
	}
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func (r *templateRenderer) renderText(file string, data any) (string, error) {
	t := r.text.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("template %s not found", file)
	}
	return execute(t, file, data)
}

func execute(t interface{ Execute(io.Writer, any) error }, file string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", file, err)
	}
	return buf.String(), nil
}

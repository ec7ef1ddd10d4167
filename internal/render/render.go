// Package render builds notification content from a subscriber's matched items.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

const defaultSubject = "New Books in Our Store!"

var bodyTemplate = template.Must(template.New("digest").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px; background-color: #f7f7f7;">
<h1 style="color: #2E86C1;">{{.Heading}}</h1>
{{- if .Name}}
<p class="greeting">Hello {{.Name}},</p>
{{- end}}
<hr style="border: none; border-bottom: 1px solid #ddd;">
{{- range .Items}}
<p class="item"><strong>{{.Title}}</strong> by {{.Author}} in category {{.Category}}</p>
{{- end}}
<p class="signoff">Best Regards,<br>Your App Team</p>
</div>`))

type itemView struct {
	Title    string
	Author   string
	Category string
}

// HTMLRenderer renders an HTML digest and derives its plain-text alternative.
type HTMLRenderer struct {
	subject string
}

var _ ports.Renderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer uses subject for every message; empty falls back to the default.
func NewHTMLRenderer(subject string) *HTMLRenderer {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = defaultSubject
	}
	return &HTMLRenderer{subject: subject}
}

// Render builds the envelope for one subscriber. Items keep the given order.
func (r *HTMLRenderer) Render(contact domain.Contact, items []domain.CatalogItem) (domain.Envelope, error) {
	if len(items) == 0 {
		return domain.Envelope{}, fmt.Errorf("render subscriber %d: no items", contact.SubscriberID)
	}

	views := make([]itemView, 0, len(items))
	for _, it := range items {
		category := it.CategoryName
		if category == "" {
			category = "#" + strconv.FormatInt(it.CategoryID, 10)
		}
		views = append(views, itemView{Title: it.Title, Author: it.Author, Category: category})
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, struct {
		Heading string
		Name    string
		Items   []itemView
	}{Heading: r.subject, Name: contact.Name, Items: views})
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("execute template: %w", err)
	}

	html := buf.String()
	text, err := plainText(html)
	if err != nil {
		return domain.Envelope{}, err
	}

	return domain.Envelope{
		MessageID:    uuid.NewString(),
		SubscriberID: contact.SubscriberID,
		Contact:      contact,
		Items:        append([]domain.CatalogItem(nil), items...),
		Subject:      r.subject,
		HTMLBody:     html,
		TextBody:     text,
	}, nil
}

func plainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse rendered body: %w", err)
	}
	doc.Find("br").ReplaceWithHtml("\n")

	var b strings.Builder
	b.WriteString(strings.TrimSpace(doc.Find("h1").First().Text()))
	b.WriteString("\n\n")
	if greeting := strings.TrimSpace(doc.Find("p.greeting").First().Text()); greeting != "" {
		b.WriteString(greeting)
		b.WriteString("\n\n")
	}
	doc.Find("p.item").Each(func(_ int, s *goquery.Selection) {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(s.Text()))
		b.WriteString("\n")
	})
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(doc.Find("p.signoff").First().Text()))
	b.WriteString("\n")
	return b.String(), nil
}

// Package compose turns a generated body into subject, HTML and plain-text
// payloads. Composition is pure: identical inputs yield byte-identical output.
package compose

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"math/rand"
	"net/url"
	"strings"
)

// subjectTemplates are the fixed A/B subject variants, parameterized by the
// recipient's first name and the event name.
var subjectTemplates = []string{
	"%s, you're invited to %s",
	"Personal invitation for %s: %s",
	"%s - Join us at %s",
}

// VariantCount returns the number of subject variants
func VariantCount() int {
	return len(subjectTemplates)
}

// PickVariant selects a pseudo-random subject variant index
func PickVariant(rnd *rand.Rand) int {
	return rnd.Intn(len(subjectTemplates))
}

// Email is a composed message ready for delivery
type Email struct {
	Subject        string
	Variant        int
	HTML           string
	Text           string
	UnsubscribeURL string
}

// Composer renders emails for one campaign
type Composer struct {
	eventName          string
	unsubscribeBaseURL string
}

// NewComposer creates a composer for the given event and unsubscribe base URL
func NewComposer(eventName, unsubscribeBaseURL string) *Composer {
	return &Composer{
		eventName:          eventName,
		unsubscribeBaseURL: unsubscribeBaseURL,
	}
}

// Subject renders the subject line for a variant index.
// The variant must be in [0, VariantCount).
func (c *Composer) Subject(firstName string, variant int) (string, error) {
	if variant < 0 || variant >= len(subjectTemplates) {
		return "", fmt.Errorf("subject variant %d out of range [0,%d)", variant, len(subjectTemplates))
	}
	return fmt.Sprintf(subjectTemplates[variant], firstName, c.eventName), nil
}

// UnsubscribeURL builds the per-recipient unsubscribe link
func (c *Composer) UnsubscribeURL(email string) string {
	return c.unsubscribeBaseURL + "?email=" + url.QueryEscape(email)
}

// Compose renders the full email for a recipient. Paragraph breaks in the
// body map to block-level separation in the HTML rendering; both renderings
// carry the unsubscribe reference.
func (c *Composer) Compose(body, firstName, email string, variant int) (*Email, error) {
	subject, err := c.Subject(firstName, variant)
	if err != nil {
		return nil, err
	}

	unsubscribeURL := c.UnsubscribeURL(email)

	html, err := renderHTML(body, unsubscribeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &Email{
		Subject:        subject,
		Variant:        variant,
		HTML:           html,
		Text:           renderText(body, unsubscribeURL),
		UnsubscribeURL: unsubscribeURL,
	}, nil
}

// htmlPage is the minimal wrapping used for deliverability: body paragraphs,
// then a muted unsubscribe footer.
var htmlPage = htmlTemplate.Must(htmlTemplate.New("html").Parse(`<html>
<body style="font-family:Arial,sans-serif;font-size:14px;color:#333;line-height:1.6;">
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}<p style="margin-top:30px;font-size:11px;color:#999;border-top:1px solid #eee;padding-top:10px;">
<a href="{{.UnsubscribeURL}}" style="color:#999;text-decoration:none;">Unsubscribe</a>
</p>
</body>
</html>`))

func renderHTML(body, unsubscribeURL string) (string, error) {
	var paragraphs []htmlTemplate.HTML
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		// Escape first, then turn remaining single newlines into <br>
		escaped := htmlTemplate.HTMLEscapeString(para)
		paragraphs = append(paragraphs, htmlTemplate.HTML(strings.ReplaceAll(escaped, "\n", "<br>")))
	}

	data := struct {
		Paragraphs     []htmlTemplate.HTML
		UnsubscribeURL string
	}{
		Paragraphs:     paragraphs,
		UnsubscribeURL: unsubscribeURL,
	}

	var buf bytes.Buffer
	if err := htmlPage.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(body, unsubscribeURL string) string {
	return body + "\n\n---\nTo unsubscribe, visit: " + unsubscribeURL + "\n"
}

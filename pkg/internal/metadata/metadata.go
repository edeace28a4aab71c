// Package metadata encodes and decodes the per-asset XML sidecar that
// records when a clip was submitted and when it expires. The codec is pure;
// reading and writing the sidecar is the store's job.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// ErrMalformed marks a sidecar that cannot be parsed at all. A well-formed
// document that merely lacks the expiration field is not an error.
var ErrMalformed = errors.New("malformed metadata document")

// expirationAliases are the element names accepted for the expiration
// marker, in priority order. The first entries are canonical; the rest are
// legacy names still found on older stores.
var expirationAliases = []string{
	"expiration",
	"expirationDate",
	"validUntil",
	"expires",
	"dataExpiracao",
	"prazoValidade",
}

// rewritePatterns match one whole expiration element per alias, keeping the
// surrounding tags in capture groups so a rewrite preserves the legacy name.
var rewritePatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(expirationAliases))
	for _, alias := range expirationAliases {
		patterns = append(patterns, regexp.MustCompile(
			`(?s)(<`+alias+`>).*?(</`+alias+`>)`))
	}

	return patterns
}()

// Document is a decoded sidecar.
type Document struct {
	Name        string    // asset filename the sidecar belongs to
	SubmittedAt time.Time // creation instant; zero when absent or unparseable
	Expiration  string    // raw expiration marker; empty when no marker exists
}

// HasExpiration reports whether the document carries an expiration marker.
func (d *Document) HasExpiration() bool {
	return d.Expiration != ""
}

// Encode renders a fresh sidecar in the canonical layout.
func Encode(filename string, submittedAt time.Time, expiration string) []byte {
	var b bytes.Buffer

	b.WriteString(xml.Header)
	b.WriteString("<video>\n")
	fmt.Fprintf(&b, "  <name>%s</name>\n", filename)
	fmt.Fprintf(&b, "  <submittedAt>%s</submittedAt>\n", submittedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "  <expiration>%s</expiration>\n", expiration)
	b.WriteString("</video>")

	return b.Bytes()
}

// Decode parses a sidecar tolerantly: field elements are looked up by name
// one level under the root, the expiration marker is resolved across the
// legacy aliases (first alias in priority order wins), and an absent marker
// yields a document without one rather than an error. Only input that the
// XML tokenizer rejects outright returns ErrMalformed.
func Decode(doc []byte) (*Document, error) {
	fields, err := collectFields(doc)
	if err != nil {
		return nil, err
	}

	out := &Document{
		Name: firstField(fields, "name", "nome"),
	}

	if raw := firstField(fields, "submittedAt", "dataEnvio"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			out.SubmittedAt = t
		}
	}

	for _, alias := range expirationAliases {
		if v := strings.TrimSpace(fields[alias]); v != "" {
			out.Expiration = v

			break
		}
	}

	return out, nil
}

// RewriteExpiration patches the expiration marker as a text-level edit: the
// existing element's value is replaced in place, whichever alias it uses,
// and every other byte of the document is left untouched. When no marker
// element exists, a canonical one is inserted before the closing boundary.
// Applying the same rewrite twice is a no-op the second time.
func RewriteExpiration(doc []byte, newMarker string) []byte {
	for _, re := range rewritePatterns {
		if re.Match(doc) {
			return re.ReplaceAll(doc, []byte("${1}"+newMarker+"${2}"))
		}
	}

	element := []byte("  <expiration>" + newMarker + "</expiration>\n</video>")
	if bytes.Contains(doc, []byte("</video>")) {
		return bytes.Replace(doc, []byte("</video>"), element, 1)
	}

	// No closing boundary to anchor on; append the element instead.
	return append(append(append([]byte{}, doc...), '\n'), []byte("<expiration>"+newMarker+"</expiration>")...)
}

// collectFields walks the token stream and gathers character data of the
// elements one level under the root, keyed by local element name.
func collectFields(doc []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	fields := make(map[string]string)

	depth := 0
	current := ""
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				sawRoot = true
			}

			if depth == 2 {
				current = t.Name.Local
			}
		case xml.EndElement:
			if depth == 2 {
				current = ""
			}

			depth--
		case xml.CharData:
			if current != "" {
				fields[current] += string(t)
			}
		}
	}

	if !sawRoot {
		return nil, ErrMalformed
	}

	return fields, nil
}

// firstField returns the first non-empty trimmed value among the given keys.
func firstField(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}

	return ""
}

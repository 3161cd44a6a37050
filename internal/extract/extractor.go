// Package extract turns raw listing-page markup into a structured
// ContractRecord. Extraction is anchored on the stable element ids the
// listing pages carry; a missing anchor omits the field rather than
// failing the parse.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bidcraft/bidcraft/internal/domain"
)

type fieldAnchor struct {
	ID    string
	Label string
}

var generalInfoAnchors = []fieldAnchor{
	{"general-type", "Contract Opportunity Type"},
	{"general-original-published-date", "Original Published Date"},
	{"general-original-response-date", "Original Date Offers Due"},
	{"general-archiving-policy", "Inactive Policy"},
	{"general-original-archive-date", "Original Inactive Date"},
	{"general-special-legislation", "Initiative"},
}

var classificationAnchors = []fieldAnchor{
	{"classification-original-set-aside", "Original Set Aside"},
	{"classification-classification-code", "Product Service Code"},
	{"classification-naics-code", "NAICS Code"},
	{"classification-pop", "Place of Performance"},
}

// Extract parses one listing page into a ContractRecord. It is a pure
// function over the markup: no anchor is required, and a page with no
// anchors at all yields a record containing only the section headers.
func Extract(markup string) (*domain.ContractRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeParse, "markup could not be parsed as HTML", err)
	}

	record := &domain.ContractRecord{
		NoticeID:         extractNoticeID(doc),
		GeneralInfo:      extractFields(doc, generalInfoAnchors),
		Classification:   extractFields(doc, classificationAnchors),
		OfficeAddress:    extractOfficeAddress(doc),
		PrimaryContact:   extractContact(doc, "contact-primary-poc"),
		SecondaryContact: extractContact(doc, "contact-secondary-poc"),
		Hierarchy:        extractHierarchy(doc),
	}
	record.RawText = record.Linearize()

	return record, nil
}

func extractNoticeID(doc *goquery.Document) string {
	return normalize(doc.Find("div#header-solicitation-number div.description").First().Text())
}

func extractFields(doc *goquery.Document, anchors []fieldAnchor) []domain.Field {
	var fields []domain.Field
	for _, anchor := range anchors {
		sel := doc.Find("li[id='" + anchor.ID + "']").First()
		if sel.Length() == 0 {
			continue
		}
		// The <strong> child holds the on-page label; only the value
		// that follows it is wanted.
		clone := sel.Clone()
		clone.Find("strong").Remove()
		value := normalize(clone.Text())
		if value == "" || strings.EqualFold(value, "none") {
			continue
		}
		fields = append(fields, domain.Field{Label: anchor.Label, Value: value})
	}
	return fields
}

func extractOfficeAddress(doc *goquery.Document) []string {
	var lines []string
	doc.Find("div[id='-contracting-office'] li").Each(func(_ int, sel *goquery.Selection) {
		if line := normalize(sel.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return lines
}

func extractContact(doc *goquery.Document, containerID string) domain.Contact {
	container := doc.Find("div[id='" + containerID + "']").First()
	if container.Length() == 0 {
		return domain.Contact{}
	}

	contact := domain.Contact{
		Name:  normalize(container.Find("li[id='" + containerID + "-full-name']").First().Text()),
		Email: normalize(container.Find("li[id='" + containerID + "-email'] a").First().Text()),
	}
	if phone := formatPhone(container.Find("li[id='" + containerID + "-phone']").First().Text()); phone != "" {
		contact.Phone = phone
	}
	return contact
}

func extractHierarchy(doc *goquery.Document) []domain.HierarchyLevel {
	content := doc.Find("div#header-hierarchy-level div.content").First()
	if content.Length() == 0 {
		return nil
	}

	headers := content.Find("div.header")
	descriptions := content.Find("div.description")

	var levels []domain.HierarchyLevel
	headers.Each(func(i int, sel *goquery.Selection) {
		if i >= descriptions.Length() {
			return
		}
		level := normalize(sel.Text())
		value := normalize(descriptions.Eq(i).Text())
		if level != "" && value != "" {
			levels = append(levels, domain.HierarchyLevel{Level: level, Value: value})
		}
	})
	return levels
}

// formatPhone pulls the first ten digits out of free-form phone text and
// renders them as XXX-XXX-XXXX. Fewer than ten digits yields "" so that
// a malformed number is omitted instead of emitted.
func formatPhone(text string) string {
	digits := make([]byte, 0, 10)
	for i := 0; i < len(text) && len(digits) < 10; i++ {
		if text[i] >= '0' && text[i] <= '9' {
			digits = append(digits, text[i])
		}
	}
	if len(digits) < 10 {
		return ""
	}
	return string(digits[:3]) + "-" + string(digits[3:6]) + "-" + string(digits[6:])
}

// normalize collapses whitespace runs to single spaces and trims.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

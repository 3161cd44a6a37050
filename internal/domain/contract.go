package domain

import "strings"

// Contact is a point of contact extracted from a listing page.
// Empty fields were absent from the markup.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// IsZero reports whether no contact field was extracted.
func (c Contact) IsZero() bool {
	return c.Name == "" && c.Email == "" && c.Phone == ""
}

// Field is an ordered label/value pair from a listing section.
type Field struct {
	Label string
	Value string
}

// HierarchyLevel is one level of the department hierarchy, e.g.
// ("Department/Ind. Agency", "DEPT OF DEFENSE").
type HierarchyLevel struct {
	Level string
	Value string
}

// ContractRecord is the structured form of one contract listing page.
// RawText is the canonical linearization consumed by chunking, retrieval
// and provenance checks; the typed fields are auxiliary.
type ContractRecord struct {
	NoticeID         string
	GeneralInfo      []Field
	Classification   []Field
	OfficeAddress    []string
	PrimaryContact   Contact
	SecondaryContact Contact
	Hierarchy        []HierarchyLevel
	RawText          string
}

// Section headers of the RawText linearization, in emission order.
const (
	SectionTitle            = "CONTRACT OPPORTUNITY DETAILS"
	SectionGeneralInfo      = "GENERAL INFORMATION"
	SectionClassification   = "CLASSIFICATION"
	SectionOfficeAddress    = "CONTRACTING OFFICE ADDRESS"
	SectionPrimaryContact   = "PRIMARY POINT OF CONTACT"
	SectionSecondaryContact = "SECONDARY POINT OF CONTACT"
	SectionHierarchy        = "DEPARTMENT HIERARCHY"
)

// Linearize rebuilds RawText from the typed fields in the fixed section
// order. Section headers are always emitted; absent fields are omitted
// rather than written blank.
func (r *ContractRecord) Linearize() string {
	var b strings.Builder
	b.WriteString(SectionTitle)
	b.WriteString("\n\n")

	if r.NoticeID != "" {
		b.WriteString("Notice ID: ")
		b.WriteString(r.NoticeID)
		b.WriteString("\n\n")
	}

	b.WriteString(SectionGeneralInfo)
	b.WriteString("\n")
	for _, f := range r.GeneralInfo {
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(SectionClassification)
	b.WriteString("\n")
	for _, f := range r.Classification {
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(SectionOfficeAddress)
	b.WriteString("\n")
	for _, line := range r.OfficeAddress {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(SectionPrimaryContact)
	b.WriteString("\n")
	writeContact(&b, r.PrimaryContact)

	b.WriteString("\n")
	b.WriteString(SectionSecondaryContact)
	b.WriteString("\n")
	writeContact(&b, r.SecondaryContact)

	b.WriteString("\n")
	b.WriteString(SectionHierarchy)
	b.WriteString("\n")
	for _, h := range r.Hierarchy {
		b.WriteString(h.Level)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\n")
	}

	return b.String()
}

func writeContact(b *strings.Builder, c Contact) {
	if c.Name != "" {
		b.WriteString("Name: ")
		b.WriteString(c.Name)
		b.WriteString("\n")
	}
	if c.Email != "" {
		b.WriteString("Email: ")
		b.WriteString(c.Email)
		b.WriteString("\n")
	}
	if c.Phone != "" {
		b.WriteString("Phone: ")
		b.WriteString(c.Phone)
		b.WriteString("\n")
	}
}

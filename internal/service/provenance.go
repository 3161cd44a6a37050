package service

import (
	"strings"
	"unicode/utf8"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// Provenance labels for highlighted spans.
const (
	SourceContractDocument = "contract_document"
	SourceAIGenerated      = "ai_generated"
)

// provenanceWindowRunes is the context captured on each side of a match.
const provenanceWindowRunes = 200

// ProvenanceResult labels a span and, for document spans, carries the
// surrounding record text.
type ProvenanceResult struct {
	Source  string
	Context string
}

// ClassifyProvenance reports whether span occurs verbatim in the
// record's linearized text. Matching is exact and case-sensitive; a
// found span comes back as contract_document with up to 200 runes of
// context on each side of the first occurrence, clamped to the record.
// Anything else is ai_generated with no context.
func ClassifyProvenance(record *domain.ContractRecord, span string) ProvenanceResult {
	if record == nil || span == "" {
		return ProvenanceResult{Source: SourceAIGenerated}
	}

	byteIndex := strings.Index(record.RawText, span)
	if byteIndex < 0 {
		return ProvenanceResult{Source: SourceAIGenerated}
	}

	runes := []rune(record.RawText)
	matchStart := utf8.RuneCountInString(record.RawText[:byteIndex])
	matchEnd := matchStart + utf8.RuneCountInString(span)

	windowStart := matchStart - provenanceWindowRunes
	if windowStart < 0 {
		windowStart = 0
	}
	windowEnd := matchEnd + provenanceWindowRunes
	if windowEnd > len(runes) {
		windowEnd = len(runes)
	}

	return ProvenanceResult{
		Source:  SourceContractDocument,
		Context: string(runes[windowStart:windowEnd]),
	}
}

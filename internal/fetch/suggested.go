package fetch

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// DefaultSearchURL lists active Department of Defense opportunities,
// newest first.
const DefaultSearchURL = "https://sam.gov/search/?page=1&pageSize=25&sort=-modifiedDate" +
	"&sfm%5BsimpleSearch%5D%5BkeywordRadio%5D=ALL" +
	"&sfm%5Bstatus%5D%5Bis_active%5D=true" +
	"&sfm%5BagencyPicker%5D%5B0%5D%5BorgKey%5D=100000000" +
	"&sfm%5BagencyPicker%5D%5B0%5D%5BorgText%5D=097%20-%20DEPT%20OF%20DEFENSE" +
	"&sfm%5BagencyPicker%5D%5B0%5D%5BlevelText%5D=Dept%20%2F%20Ind.%20Agency" +
	"&sfm%5BagencyPicker%5D%5B0%5D%5Bhighlighted%5D=true"

const (
	listingBaseURL = "https://sam.gov"
	maxListings    = 5
	titleLimit     = 100
	fallbackTitle  = "Contract Opportunity"
)

var opportunityHref = regexp.MustCompile(`^/opp/.+/view$`)

// Listing is one suggested contract opportunity.
type Listing struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SuggestedService scrapes the search page for recent opportunities.
type SuggestedService struct {
	fetcher   PageFetcher
	searchURL string
}

func NewSuggestedService(fetcher PageFetcher, searchURL string) *SuggestedService {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &SuggestedService{fetcher: fetcher, searchURL: searchURL}
}

// Suggested returns up to five opportunity listings from the search page.
func (s *SuggestedService) Suggested(ctx context.Context) ([]Listing, error) {
	markup, err := s.fetcher.Page(ctx, s.searchURL)
	if err != nil {
		return nil, err
	}
	return ParseListings(markup)
}

// ParseListings extracts opportunity links from search-page markup:
// anchors whose href matches /opp/<id>/view, first five in document
// order, titles truncated to 100 runes.
func ParseListings(markup string) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeParse, "failed to parse search page", err)
	}

	listings := make([]Listing, 0, maxListings)
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !opportunityHref.MatchString(href) {
			return true
		}

		title := strings.Join(strings.Fields(sel.Text()), " ")
		if title == "" {
			title = fallbackTitle
		}
		if runes := []rune(title); len(runes) > titleLimit {
			title = string(runes[:titleLimit]) + "..."
		}

		listings = append(listings, Listing{
			URL:   listingBaseURL + href,
			Title: title,
		})
		return len(listings) < maxListings
	})

	return listings, nil
}

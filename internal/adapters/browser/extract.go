package browser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"places_scraper/internal/domain"
)

var (
	errMalformedListing = errors.New("listing node has neither name nor link")
	nonDigit            = regexp.MustCompile(`\D`)
)

// ListingNode is one parsed result-feed entry. Err is set when the node
// could not be turned into a place.
type ListingNode struct {
	Place *domain.Place
	Err   error
}

// ParseListings returns one entry per listing node, in DOM order.
func ParseListings(html string) ([]ListingNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	nodes := doc.Find(ListingNodeSelector)
	out := make([]ListingNode, 0, nodes.Length())
	nodes.Each(func(_ int, sel *goquery.Selection) {
		p, err := parseListing(sel)
		out = append(out, ListingNode{Place: p, Err: err})
	})
	return out, nil
}

func parseListing(sel *goquery.Selection) (*domain.Place, error) {
	name := text(sel, ListingName)
	link, _ := sel.Find(ListingLink).First().Attr("href")
	if link == "" {
		link, _ = sel.Find("a").First().Attr("href")
	}
	if name == "" && link == "" {
		return nil, errMalformedListing
	}
	return &domain.Place{
		Name:         name,
		URL:          strings.TrimSpace(link),
		Rating:       parseRating(text(sel, ListingRating)),
		TotalReviews: ParseReviewCount(text(sel, ListingReviewCount)),
		Reviews:      []domain.Review{},
	}, nil
}

// ParseReviews extracts every rendered review node. Missing sub-fields are
// left empty.
func ParseReviews(html string) ([]domain.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	var out []domain.Review
	doc.Find(ReviewNodeSelector).Each(func(_ int, sel *goquery.Selection) {
		r := domain.Review{
			Author: text(sel, ReviewAuthor),
			Time:   text(sel, ReviewTime),
			Text:   text(sel, ReviewText),
		}
		label, _ := sel.Find(ReviewRating).First().Attr("aria-label")
		r.Rating = ParseRatingLabel(label)
		if r.Author == "" && r.Text == "" && r.Time == "" {
			return
		}
		out = append(out, r)
	})
	return out, nil
}

type Contact struct {
	Address string
	Phone   string
	Website string
}

// ParseContact reads the detail page's address, phone and website controls.
func ParseContact(html string) (Contact, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Contact{}, err
	}
	var c Contact
	if v, ok := doc.Find(AddressSelector).First().Attr("aria-label"); ok {
		c.Address = stripLabel(v, "Address:")
	}
	if v, ok := doc.Find(PhoneSelector).First().Attr("aria-label"); ok {
		c.Phone = stripLabel(v, "Phone:")
	}
	if v, ok := doc.Find(WebsiteSelector).First().Attr("href"); ok {
		c.Website = strings.TrimSpace(v)
	}
	return c, nil
}

// ParseReviewCount keeps only the digits of a label like "(1,234)" or
// "1,234 reviews". No digits means 0.
func ParseReviewCount(s string) int {
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// ParseRatingLabel reads the leading number of a label like "5 stars".
// Anything outside 1..5 is 0.
func ParseRatingLabel(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	tok := strings.ReplaceAll(fields[0], ",", ".")
	n, err := strconv.Atoi(tok)
	if err != nil {
		f, ferr := strconv.ParseFloat(tok, 64)
		if ferr != nil {
			return 0
		}
		n = int(f)
	}
	if n < 1 || n > 5 {
		return 0
	}
	return n
}

func parseRating(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func text(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

func stripLabel(v, prefix string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, prefix) {
		v = strings.TrimSpace(strings.TrimPrefix(v, prefix))
	}
	return v
}

// Package listings fabricates deterministic property data for the
// development backend: the same URL always yields the same listing.
package listings

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/models"
)

var ErrInvalidURL = errors.New("invalid listing url")

// FromURL builds the listing for rawURL.
func FromURL(rawURL string) (models.Property, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.Property{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(u.Host + u.EscapedPath()))
	seed := h.Sum64()

	bedrooms := int(seed%5) + 1
	area := float64(35 + (seed>>8)%180)
	pricePerSqm := float64(2500 + (seed>>16)%7500)

	return models.Property{
		ID:        fmt.Sprintf("p-%012x", seed&0xffffffffffff),
		URL:       u.String(),
		Title:     title(u, bedrooms),
		Address:   fmt.Sprintf("%d %s Street", 1+(seed>>24)%200, streets[(seed>>32)%uint64(len(streets))]),
		Price:     math.Round(area*pricePerSqm/1000) * 1000,
		Currency:  "EUR",
		Bedrooms:  bedrooms,
		Bathrooms: float64(1 + (seed>>40)%3),
		AreaSqm:   area,
		Summary:   fmt.Sprintf("%d-bedroom home of %.0f m2 listed on %s.", bedrooms, area, u.Host),
	}, nil
}

var streets = []string{"Harbour", "Linden", "Mill", "Station", "Orchard", "Church", "Park", "Bridge"}

func title(u *url.URL, bedrooms int) string {
	slug := path.Base(u.Path)
	if slug == "." || slug == "/" || slug == "" {
		slug = u.Host
	}
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return fmt.Sprintf("%d bed: %s", bedrooms, slug)
}

// PricePerSqm is the comparison metric; lower is better.
func PricePerSqm(p models.Property) float64 {
	if p.AreaSqm <= 0 {
		return math.Inf(1)
	}
	return p.Price / p.AreaSqm
}

// Compare ranks properties by price per square metre.
func Compare(props []models.Property) models.Comparison {
	ranked := append([]models.Property(nil), props...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return PricePerSqm(ranked[i]) < PricePerSqm(ranked[j])
	})

	c := models.Comparison{Properties: props}
	if len(ranked) == 0 {
		c.Summary = "Nothing to compare."
		return c
	}
	best := ranked[0]
	c.WinnerID = best.ID
	c.Summary = fmt.Sprintf("%s offers the best value at %.0f %s/m2.", best.Title, PricePerSqm(best), best.Currency)
	return c
}

// Answer produces a canned answer to a question about p.
func Answer(p models.Property, question string) models.Answer {
	q := strings.ToLower(question)
	var text string
	switch {
	case strings.Contains(q, "price") || strings.Contains(q, "cost"):
		text = fmt.Sprintf("The asking price is %.0f %s (%.0f per m2).", p.Price, p.Currency, PricePerSqm(p))
	case strings.Contains(q, "bed") || strings.Contains(q, "room"):
		text = fmt.Sprintf("It has %d bedrooms and %.0f bathrooms.", p.Bedrooms, p.Bathrooms)
	case strings.Contains(q, "size") || strings.Contains(q, "area") || strings.Contains(q, "big"):
		text = fmt.Sprintf("The living area is %.0f m2.", p.AreaSqm)
	case strings.Contains(q, "where") || strings.Contains(q, "address") || strings.Contains(q, "location"):
		text = fmt.Sprintf("The property is at %s.", p.Address)
	default:
		text = fmt.Sprintf("The listing does not say. %s", p.Summary)
	}
	return models.Answer{PropertyID: p.ID, Question: question, Answer: text}
}

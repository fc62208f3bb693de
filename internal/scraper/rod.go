package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"refurbtracker/internal/domain"
)

const pageTimeout = 30 * time.Second

// RodScraper drives a single headless browser session, reused across all
// category pages and passes. The storefront builds its grid client-side, so
// a plain HTTP fetch does not see the listings; rod renders the page and
// goquery walks the rendered DOM.
type RodScraper struct {
	browser *rod.Browser
	log     logrus.FieldLogger
}

// NewRodScraper launches the browser and connects to it.
func NewRodScraper(logger logrus.FieldLogger) (*RodScraper, error) {
	log := logger.WithField("component", "scraper")

	path, exists := launcher.LookPath()
	if !exists {
		log.Error("Cannot find browser executable for rod")
		return nil, errors.New("rod browser dependency not found")
	}
	u := launcher.New().Bin(path).MustLaunch()
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		log.WithError(err).Error("Failed to connect to rod browser")
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	log.Info("Browser session established")

	return &RodScraper{browser: browser, log: log}, nil
}

// Close shuts the shared browser session down.
func (s *RodScraper) Close() error {
	s.log.Info("Closing browser session")
	return s.browser.Close()
}

// Scrape visits every category URL in order. Per-category failures are
// logged and skipped; an error is returned only when no category could be
// read at all, which indicates a broken session rather than a flaky page.
func (s *RodScraper) Scrape(ctx context.Context, urls []string) ([]domain.RawListing, error) {
	var listings []domain.RawListing
	failed := 0
	for _, pageURL := range urls {
		found, err := s.scrapeCategory(ctx, pageURL)
		if err != nil {
			s.log.WithError(err).WithField("url", pageURL).Error("Category scrape failed")
			failed++
			continue
		}
		s.log.WithFields(logrus.Fields{
			"url":      pageURL,
			"listings": len(found),
		}).Info("Category scraped")
		listings = append(listings, found...)
	}
	if len(urls) > 0 && failed == len(urls) {
		return nil, errors.New("all category pages failed to scrape")
	}
	return listings, nil
}

// scrapeCategory opens one page, waits for it to render, and extracts the
// product tiles. The render runs against a timeout-scoped handle; the
// original browser-scoped handle is the one that gets closed, since closing
// through the scoped handle would fail once its timeout has been cancelled.
func (s *RodScraper) scrapeCategory(ctx context.Context, pageURL string) ([]domain.RawListing, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	pageCtx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	return scrapePage(page, page.Context(pageCtx), pageURL, s.log)
}

// categoryPage is the slice of the page API one category scrape needs.
type categoryPage interface {
	WaitLoad() error
	HTML() (string, error)
	Close() error
}

// scrapePage renders one category through the timeout-scoped handle and
// closes the original handle on every exit path. A close failure is logged
// but never overrides the scrape result; the listings are already in hand.
func scrapePage(page, scoped categoryPage, pageURL string, log logrus.FieldLogger) ([]domain.RawListing, error) {
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Error closing page")
		}
	}()

	if err := scoped.WaitLoad(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("scraping timed out for %s: %w", pageURL, err)
		}
		return nil, fmt.Errorf("failed waiting for page load: %w", err)
	}

	html, err := scoped.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}

	return ParseListings(html, pageURL)
}

// ParseListings extracts the product tiles out of a rendered category page.
// Split from the browser plumbing so it can run against fixture HTML.
func ParseListings(html, pageURL string) ([]domain.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid category url %q: %w", pageURL, err)
	}
	category := CategoryFromURL(pageURL)

	var listings []domain.RawListing
	doc.Find("div.rf-refurb-category-grid-no-js ul li").Each(func(_ int, tile *goquery.Selection) {
		link := tile.Find("h3 a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}
		img, _ := tile.Find("img").First().Attr("src")

		listings = append(listings, domain.RawListing{
			Name:        name,
			Price:       strings.TrimSpace(tile.Find(".as-price-currentprice").First().Text()),
			Description: strings.TrimSpace(tile.Find(".rf-refurb-producttile-description").First().Text()),
			URL:         absoluteURL(base, href),
			Image:       img,
			Category:    category,
		})
	})
	return listings, nil
}

// CategoryFromURL infers the storefront section from the category page path.
func CategoryFromURL(pageURL string) domain.Category {
	switch {
	case strings.Contains(pageURL, "/refurbished/mac"):
		return domain.CategoryMac
	case strings.Contains(pageURL, "/refurbished/ipad"):
		return domain.CategoryIPad
	case strings.Contains(pageURL, "/refurbished/appletv"):
		return domain.CategoryAppleTV
	default:
		return domain.CategoryOther
	}
}

func absoluteURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

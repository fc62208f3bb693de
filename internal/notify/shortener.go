package notify

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const defaultShortenEndpoint = "https://tinyurl.com/api-create.php"

// Shortener shortens product links best-effort. It never fails: any error
// from the shortening service falls back to the original URL.
type Shortener struct {
	client   *resty.Client
	endpoint string
	log      logrus.FieldLogger
}

// NewShortener creates a Shortener against the public tinyurl endpoint.
func NewShortener(logger logrus.FieldLogger) *Shortener {
	client := resty.New()
	client.SetTimeout(5 * time.Second)
	return &Shortener{
		client:   client,
		endpoint: defaultShortenEndpoint,
		log:      logger.WithField("component", "shortener"),
	}
}

// Shorten returns a short form of rawURL, or rawURL itself when the service
// is unreachable or answers nonsense.
func (s *Shortener) Shorten(rawURL string) string {
	res, err := s.client.R().
		SetQueryParam("url", rawURL).
		Get(s.endpoint)
	if err != nil {
		s.log.WithError(err).Debug("URL shortening failed, using original URL")
		return rawURL
	}
	if res.StatusCode() != http.StatusOK {
		s.log.WithField("status", res.StatusCode()).Debug("URL shortening failed, using original URL")
		return rawURL
	}
	short := strings.TrimSpace(res.String())
	if !strings.HasPrefix(short, "http") {
		return rawURL
	}
	return short
}

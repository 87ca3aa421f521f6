package errors

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ErrorClassifier assigns an ErrorTier to errors returned by the provider
// client libraries, which only expose status codes through their messages.
type ErrorClassifier struct {
	mu              sync.RWMutex
	transientPats   []*regexp.Regexp
	userFixablePats []*regexp.Regexp
	rateLimitCodes  map[int]struct{}
	degradingCodes  map[int]struct{}
	userFixCodes    map[int]struct{}
}

var defaultClassifier = NewErrorClassifier()

func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{
		transientPats:   make([]*regexp.Regexp, 0),
		userFixablePats: make([]*regexp.Regexp, 0),
		rateLimitCodes: map[int]struct{}{
			http.StatusTooManyRequests: {},
		},
		degradingCodes: map[int]struct{}{
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
		userFixCodes: map[int]struct{}{
			http.StatusUnauthorized: {},
			http.StatusForbidden:    {},
		},
	}
}

func (c *ErrorClassifier) Classify(err error) ErrorTier {
	if err == nil {
		return TierPermanent
	}

	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TierTransient
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.classifyByContent(err.Error())
}

func (c *ErrorClassifier) classifyByContent(errStr string) ErrorTier {
	if c.isRateLimitError(errStr) {
		return TierExternalRateLimit
	}
	if c.containsAnyStatusCode(errStr, c.degradingCodes) {
		return TierExternalDegrading
	}
	if c.containsAnyStatusCode(errStr, c.userFixCodes) || c.matchesPatterns(errStr, c.userFixablePats) {
		return TierUserFixable
	}
	if c.matchesPatterns(errStr, c.transientPats) || matchesTransientKeywords(errStr) {
		return TierTransient
	}
	return TierPermanent
}

func (c *ErrorClassifier) isRateLimitError(errStr string) bool {
	lower := strings.ToLower(errStr)
	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") {
		return true
	}
	return c.containsAnyStatusCode(errStr, c.rateLimitCodes)
}

func (c *ErrorClassifier) containsAnyStatusCode(errStr string, codes map[int]struct{}) bool {
	for code := range codes {
		if strings.Contains(errStr, strconv.Itoa(code)) {
			return true
		}
	}
	return false
}

func (c *ErrorClassifier) matchesPatterns(errStr string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(errStr) {
			return true
		}
	}
	return false
}

var transientKeywords = []string{
	"timeout",
	"deadline exceeded",
	"temporary",
	"connection reset",
	"connection refused",
	"eof",
	"broken pipe",
	"no such host",
	"network unreachable",
}

func matchesTransientKeywords(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, kw := range transientKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (c *ErrorClassifier) AddTransientPattern(pattern string) error {
	return c.addPattern(pattern, &c.transientPats)
}

func (c *ErrorClassifier) AddUserFixablePattern(pattern string) error {
	return c.addPattern(pattern, &c.userFixablePats)
}

func (c *ErrorClassifier) addPattern(pattern string, target *[]*regexp.Regexp) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	c.mu.Lock()
	*target = append(*target, re)
	c.mu.Unlock()
	return nil
}

// Package transcript proxies caption text downloads for the player's
// transcript plugin.
package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"amsplayer/internal/metrics"
)

const maxTranscript = 4 << 20

type Result struct {
	Result  string `json:"result"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

func success(content string) Result { return Result{Result: "success", Content: content} }
func failure(msg string) Result     { return Result{Result: "error", Message: msg} }

// FailureMessage is the only error text callers ever see.
func FailureMessage(lang string) string {
	return fmt.Sprintf("Transcript fetching failure: language [%s]", lang)
}

func parseMessage(lang string) string {
	return fmt.Sprintf("Can't get content of the fetched transcript: language [%s]", lang)
}

type Fetcher struct {
	http  *retryablehttp.Client
	log   *zap.SugaredLogger
	limit int64
}

// New wraps hc, which should be configured for a single attempt.
func New(hc *retryablehttp.Client, log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{http: hc, log: log, limit: maxTranscript}
}

// Fetch never returns an error; failures become an error Result.
func (f *Fetcher) Fetch(ctx context.Context, src, lang string) Result {
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return f.transportFailure(lang, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return f.transportFailure(lang, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return f.transportFailure(lang, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.limit+1))
	if err != nil {
		return f.parseFailure(lang, err)
	}
	if int64(len(body)) > f.limit {
		metrics.TranscriptFetches.WithLabelValues("parse").Inc()
		f.log.Errorw("transcript exceeds limit", "lang", lang, "limit", f.limit)
		return failure(FailureMessage(lang))
	}
	if !utf8.Valid(body) {
		return f.parseFailure(lang, fmt.Errorf("body is not valid utf-8"))
	}
	metrics.TranscriptFetches.WithLabelValues("ok").Inc()
	return success(string(body))
}

func (f *Fetcher) transportFailure(lang string, err error) Result {
	msg := FailureMessage(lang)
	metrics.TranscriptFetches.WithLabelValues("transport").Inc()
	f.log.Errorw(msg, "error", err, zap.Stack("stack"))
	return failure(msg)
}

func (f *Fetcher) parseFailure(lang string, err error) Result {
	metrics.TranscriptFetches.WithLabelValues("parse").Inc()
	f.log.Errorw(parseMessage(lang), "error", err)
	return failure(FailureMessage(lang))
}

// Package webhook accepts authenticated re-scrape notifications and asks
// the external automation system to re-run the pipeline.
//
// The receiver does none of the scraping itself: on an authenticated POST
// it dispatches a workflow run asynchronously and answers "accepted"
// immediately, so the upstream notifier is never held hostage to a slow
// scrape.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"harborcal/internal/logger"
)

const (
	// HookPath is the fixed path the notifier posts to.
	HookPath = "/hooks/rescrape"

	// SignatureHeader carries the HMAC-SHA256 body signature as
	// "sha256=<hex>".
	SignatureHeader = "X-Signature-256"

	// MaxBodyBytes caps the accepted request body. Notification payloads
	// are tiny; anything larger is rejected outright.
	MaxBodyBytes = 64 * 1024

	dispatchTimeout = 30 * time.Second
)

// Config holds the receiver's credentials. At least one of Token and
// Secret must be set; with neither, every request is rejected.
type Config struct {
	// Token is compared, constant-time, against "Authorization: Bearer".
	Token string

	// Secret is the HMAC-SHA256 key for signature-based authentication.
	Secret string
}

// Dispatcher requests a pipeline re-run from the external automation
// system.
type Dispatcher interface {
	Dispatch(ctx context.Context, reason string) error
}

// NewHandler returns the receiver's HTTP handler: the hook path plus a
// health endpoint.
func NewHandler(cfg Config, dispatcher Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HookPath, func(w http.ResponseWriter, r *http.Request) {
		handleHook(w, r, cfg, dispatcher)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func handleHook(w http.ResponseWriter, r *http.Request, cfg Config, dispatcher Dispatcher) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	if !authorized(r, body, cfg) {
		logger.Warn("unauthorized webhook request", logger.Fields{
			"remote": r.RemoteAddr,
		})
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	reason := dispatchReason(body)
	logger.Info("webhook accepted, dispatching re-scrape", logger.Fields{
		"reason": reason,
	})

	// The response must not wait on the automation system.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := dispatcher.Dispatch(ctx, reason); err != nil {
			logger.Error("re-scrape dispatch failed", logger.Fields{"reason": reason}, err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// authorized accepts a request carrying either a matching bearer token or
// a valid HMAC-SHA256 body signature. All comparisons are constant-time.
// With no credentials configured it fails closed.
func authorized(r *http.Request, body []byte, cfg Config) bool {
	if cfg.Token != "" {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) == 1 {
				return true
			}
		}
	}

	if cfg.Secret != "" {
		sig := r.Header.Get(SignatureHeader)
		if hexDigest, ok := strings.CutPrefix(sig, "sha256="); ok {
			want, err := hex.DecodeString(hexDigest)
			if err == nil {
				mac := hmac.New(sha256.New, []byte(cfg.Secret))
				mac.Write(body)
				if hmac.Equal(mac.Sum(nil), want) {
					return true
				}
			}
		}
	}

	return false
}

// dispatchReason pulls an optional {"reason": ...} out of the payload for
// traceability; anything unparseable becomes a generic reason.
func dispatchReason(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Reason != "" {
		return payload.Reason
	}
	return "webhook"
}

// WorkflowDispatcher triggers a GitHub Actions workflow_dispatch, the
// automation that runs the scheduled scrape.
type WorkflowDispatcher struct {
	// URL is the workflow dispatches endpoint, e.g.
	// https://api.github.com/repos/OWNER/REPO/actions/workflows/scrape.yml/dispatches
	URL string

	// Token authenticates against the automation API.
	Token string

	// Ref is the branch the workflow runs on.
	Ref string

	client *http.Client
}

// NewWorkflowDispatcher creates a dispatcher for the given workflow
// endpoint.
func NewWorkflowDispatcher(url, token, ref string) *WorkflowDispatcher {
	if ref == "" {
		ref = "main"
	}
	return &WorkflowDispatcher{
		URL:    url,
		Token:  token,
		Ref:    ref,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Dispatch posts the workflow_dispatch request, retrying transient
// failures with exponential backoff.
func (d *WorkflowDispatcher) Dispatch(ctx context.Context, reason string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"ref":    d.Ref,
		"inputs": map[string]string{"reason": reason},
	})
	if err != nil {
		return fmt.Errorf("encoding dispatch payload: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating dispatch request: %w", err))
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("Authorization", "Bearer "+d.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("posting dispatch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("dispatch endpoint returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("dispatch endpoint returned %d", resp.StatusCode))
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))
}

// harborcal-webhook runs the webhook receiver that triggers a re-scrape.
//
// It authenticates inbound notifications (bearer token or HMAC signature),
// dispatches the scrape workflow asynchronously, and answers immediately.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"harborcal/internal/logger"
	"harborcal/internal/webhook"
)

var (
	listen        = flag.String("listen", envOr("WEBHOOK_LISTEN", "127.0.0.1:8787"), "Listen address (or env: WEBHOOK_LISTEN)")
	token         = flag.String("token", os.Getenv("WEBHOOK_TOKEN"), "Bearer token for inbound requests (or env: WEBHOOK_TOKEN)")
	secret        = flag.String("secret", os.Getenv("WEBHOOK_SECRET"), "HMAC-SHA256 secret for signed requests (or env: WEBHOOK_SECRET)")
	dispatchURL   = flag.String("dispatch-url", os.Getenv("DISPATCH_URL"), "Workflow dispatches endpoint (or env: DISPATCH_URL)")
	dispatchToken = flag.String("dispatch-token", os.Getenv("DISPATCH_TOKEN"), "Token for the dispatch endpoint (or env: DISPATCH_TOKEN)")
	dispatchRef   = flag.String("dispatch-ref", envOr("DISPATCH_REF", "main"), "Branch ref the workflow runs on (or env: DISPATCH_REF)")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	if *token == "" && *secret == "" {
		fmt.Fprintln(os.Stderr, "at least one of --token and --secret is required")
		os.Exit(1)
	}
	if *dispatchURL == "" {
		fmt.Fprintln(os.Stderr, "--dispatch-url is required")
		os.Exit(1)
	}

	handler := webhook.NewHandler(
		webhook.Config{Token: *token, Secret: *secret},
		webhook.NewWorkflowDispatcher(*dispatchURL, *dispatchToken, *dispatchRef),
	)

	server := &http.Server{
		Addr:              *listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("webhook receiver listening", logger.Fields{"addr": *listen})
	if err := server.ListenAndServe(); err != nil {
		logger.Error("webhook receiver stopped", nil, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

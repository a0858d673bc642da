package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/actions"
	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/protocol/page"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <url>",
	Short: "Navigate to URL",
	Long:  "Navigates the target page to the specified URL. Returns once the navigation commits unless --wait or --ready is specified.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNavigate,
}

func init() {
	navigateCmd.Flags().Bool("wait", false, "Wait for the page load event")
	navigateCmd.Flags().Bool("ready", false, "Wait until document.readyState is complete")
	navigateCmd.Flags().Duration("wait-timeout", 30*time.Second, "Maximum time to wait (used with --wait and --ready)")
	rootCmd.AddCommand(navigateCmd)
}

// normalizeURL adds protocol to URL if missing.
// Uses http:// for localhost/127.0.0.1/0.0.0.0, https:// otherwise.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") || strings.HasPrefix(url, "about:") || strings.HasPrefix(url, "data:") {
		return url
	}

	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "localhost") ||
		strings.HasPrefix(lower, "127.0.0.1") ||
		strings.HasPrefix(lower, "0.0.0.0") {
		return "http://" + url
	}

	return "https://" + url
}

func runNavigate(cmd *cobra.Command, args []string) error {
	wait, _ := cmd.Flags().GetBool("wait")
	ready, _ := cmd.Flags().GetBool("ready")
	waitTimeout, _ := cmd.Flags().GetDuration("wait-timeout")

	ctx := cmd.Context()
	c, err := openSession(ctx, cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	url := normalizeURL(args[0])
	p := page.Use(c.session)

	var loaded *cdp.Collector[page.LoadEventFired]
	if wait {
		// Subscribe before navigating so a fast load is not missed.
		var id string
		loaded, id = cdp.Collect[page.LoadEventFired](c.session, page.EventLoadEventFired)
		defer c.session.RemoveListener(id)
		if err := p.Enable(ctx); err != nil {
			return outputError(cmd, err)
		}
	}

	debugf(cmd, "navigating to %s", url)
	res, err := p.Navigate(ctx, url)
	if err != nil {
		return outputError(cmd, err)
	}

	wctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	if loaded != nil {
		select {
		case <-loaded.Notify():
		case <-wctx.Done():
			return outputError(cmd, wctx.Err())
		}
	}
	if ready {
		if err := actions.On(c.session).WaitReady(wctx, 0); err != nil {
			return outputError(cmd, err)
		}
	}

	if JSONOutput {
		return outputSuccess(cmd, res)
	}
	return outputSuccess(cmd, nil)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/cli/format"
	"github.com/grantcarthew/cdpsession/internal/protocol/page"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture screenshot of current page",
	Long: `Captures a screenshot of the current viewport and saves it to a file.

File location:
  Default: <tmp>/cdpsession-screenshots/YY-MM-DD-HHMMSS-{title}.<format>
  Custom:  Specified path with --output flag

Examples:
  screenshot                            # Current visible area
  screenshot -o ./debug/page.png        # Save to specific location
  screenshot --format jpeg              # JPEG instead of PNG`,
	Args: cobra.NoArgs,
	RunE: runScreenshot,
}

func init() {
	screenshotCmd.Flags().StringP("output", "o", "", "Save to specified path instead of temp directory")
	screenshotCmd.Flags().String("format", "png", "Image format: png, jpeg or webp")
	rootCmd.AddCommand(screenshotCmd)
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	imgFormat, _ := cmd.Flags().GetString("format")
	switch imgFormat {
	case "png", "jpeg", "webp":
	default:
		return outputError(cmd, fmt.Errorf("unsupported format %q", imgFormat))
	}

	ctx := cmd.Context()
	c, err := openSession(ctx, cmd)
	if err != nil {
		return outputError(cmd, err)
	}
	defer c.Close()

	data, err := page.Use(c.session).CaptureScreenshot(ctx, imgFormat)
	if err != nil {
		return outputError(cmd, fmt.Errorf("failed to capture screenshot: %w", err))
	}

	outputPath := output
	if outputPath == "" {
		outputPath = generateScreenshotPath(ctx, c.session, imgFormat)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return outputError(cmd, fmt.Errorf("failed to create directory: %w", err))
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return outputError(cmd, fmt.Errorf("failed to write screenshot: %w", err))
	}

	if JSONOutput {
		return outputSuccess(cmd, map[string]any{"path": outputPath})
	}
	return format.FilePath(cmd.OutOrStdout(), outputPath)
}

// generateScreenshotPath builds a filename in the temp directory using the
// pattern YY-MM-DD-HHMMSS-{normalized-title}.<ext>.
func generateScreenshotPath(ctx context.Context, s *cdp.Session, ext string) string {
	title := "untitled"
	if obj, err := runtime.Use(s).Evaluate(ctx, "document.title"); err == nil {
		var t string
		if err := json.Unmarshal(obj.Value, &t); err == nil {
			title = normalizeTitle(t)
		}
	}

	filename := fmt.Sprintf("%s-%s.%s", time.Now().Format("06-01-02-150405"), title, ext)
	return filepath.Join(os.TempDir(), "cdpsession-screenshots", filename)
}

var (
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	multiHyphen = regexp.MustCompile(`-+`)
)

// normalizeTitle normalizes a page title for use in filenames: at most 30
// characters, runs of non-alphanumerics collapsed to one hyphen, lowercase.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 30 {
		title = title[:30]
	}
	title = nonAlnum.ReplaceAllString(title, "-")
	title = multiHyphen.ReplaceAllString(title, "-")
	title = strings.ToLower(strings.Trim(title, "-"))
	if title == "" {
		title = "untitled"
	}
	return title
}

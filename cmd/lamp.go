package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	termcolor "github.com/fatih/color"
	"github.com/smazurov/lampnode/internal/color"
	"github.com/spf13/cobra"
)

// Client talks to a remote lamp's command server.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for host. A host without a scheme is reached
// over plain HTTP.
func NewClient(host string, timeout time.Duration) *Client {
	base := strings.TrimRight(host, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}
}

// Get returns the lamp's current color.
func (c *Client) Get(ctx context.Context) (color.Color, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return color.Black, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return color.Black, fmt.Errorf("failed to get lamp status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return color.Black, fmt.Errorf("failed to read lamp status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return color.Black, fmt.Errorf("got %d code from status endpoint", resp.StatusCode)
	}

	parsed, err := color.Parse(strings.TrimSpace(string(body)))
	if err != nil {
		return color.Black, fmt.Errorf("lamp returned an invalid color %q: %w", body, err)
	}
	return parsed, nil
}

// Set commands a new color.
func (c *Client) Set(ctx context.Context, col color.Color) error {
	form := url.Values{"color": {col.String()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/update", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update lamp: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("got %d code from update endpoint", resp.StatusCode)
	}
	return nil
}

// Sync sets want only when the lamp shows something else. It reports
// whether an update was sent.
func (c *Client) Sync(ctx context.Context, want color.Color) (bool, error) {
	current, err := c.Get(ctx)
	if err != nil {
		return false, err
	}
	if current == want {
		return false, nil
	}
	return true, c.Set(ctx, want)
}

// swatch renders c as a block of background color followed by its hex value.
func swatch(c color.Color) string {
	block := termcolor.BgRGB(int(c.R()), int(c.G()), int(c.B()))
	return block.Sprint("      ") + " " + c.String()
}

// CreateLampCmd creates the lamp client command.
func CreateLampCmd() *cobra.Command {
	var host string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "lamp",
		Short: "Control a remote lamp",
		Long:  `Reads and sets the color of a lamp over its HTTP command server.`,
	}
	cmd.PersistentFlags().StringVar(&host, "host", "", "Lamp address, host[:port] or URL")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	_ = cmd.MarkPersistentFlagRequired("host")

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current color",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			current, err := NewClient(host, timeout).Get(c.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), swatch(current))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set COLOR",
		Short: "Set the color (6 hex digits)",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			want, err := color.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid color %q: %w", args[0], err)
			}
			if err := NewClient(host, timeout).Set(c.Context(), want); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), swatch(want))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sync COLOR",
		Short: "Set the color only if the lamp shows a different one",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			want, err := color.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid color %q: %w", args[0], err)
			}
			changed, err := NewClient(host, timeout).Sync(c.Context(), want)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(c.OutOrStdout(), "updated", swatch(want))
			} else {
				fmt.Fprintln(c.OutOrStdout(), "in sync", swatch(want))
			}
			return nil
		},
	})

	return cmd
}

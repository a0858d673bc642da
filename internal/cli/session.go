package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grantcarthew/cdpsession/internal/browser"
	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/config"
	"github.com/grantcarthew/cdpsession/internal/protocol"
)

// loadConfig reads the config file and environment, then applies the flags
// the user set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = Host
	}
	if flags.Changed("port") {
		cfg.Port = Port
	}
	if flags.Changed("target") {
		cfg.TargetID = TargetID
	}
	if flags.Changed("new-target") {
		cfg.StartNewTarget = NewTarget
	}
	if flags.Changed("launch") {
		cfg.Launch.Enabled = Launch
	}
	if flags.Changed("headless") {
		cfg.Launch.Headless = Headless
	}
	if flags.Changed("timeout") {
		cfg.CommandTimeout = Timeout
	}
	if cfg.Debug {
		Debug = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// conn is an open session plus the browser it may have launched.
type conn struct {
	session *cdp.Session
	browser *browser.Browser
}

// Close ends the session and stops a launched browser.
func (c *conn) Close() error {
	err := c.session.Close()
	if c.browser != nil {
		err = errors.Join(err, c.browser.Close())
	}
	return err
}

// discoveryClient returns the HTTP discovery client for cfg.
func discoveryClient(cfg *config.Config) browser.Client {
	return browser.Client{Host: cfg.Host, Port: cfg.Port}
}

// openSession connects to the configured browser, launching one first when
// asked to.
func openSession(ctx context.Context, cmd *cobra.Command) (*conn, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	sc := cfg.Session()
	sc.Registry = protocol.Registry()
	sc.Logger = newLogger(cmd.ErrOrStderr())

	c := &conn{}
	resolver := cfg.Resolver()
	resolver.Logger = sc.Logger

	if cfg.Launch.Enabled {
		opts := cfg.LaunchOptions()
		opts.Logger = sc.Logger
		b, err := browser.Start(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		debugf(cmd, "browser started: pid %d, port %d", b.PID(), b.Client().Port)
		c.browser = b
		resolver.Client = b.Client()
	}

	c.session = cdp.NewSession(sc)
	debugf(cmd, "resolving target on %s:%d", resolver.Host, resolver.Port)
	if err := c.session.Connect(ctx, resolver); err != nil {
		_ = c.Close()
		return nil, err
	}
	debugf(cmd, "connected to %s", c.session.Endpoint())
	return c, nil
}

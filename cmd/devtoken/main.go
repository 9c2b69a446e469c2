// Command devtoken mints a bearer token for local testing of the API.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"studytime-backend/internal/middleware"
)

type CLI struct {
	UserID string        `arg:"" name:"user-id" help:"User ID to embed in the token."`
	Secret string        `env:"JWT_SECRET" required:"" help:"HMAC secret shared with the server."`
	TTL    time.Duration `default:"24h" help:"Token lifetime."`
}

func (c *CLI) Run(out io.Writer) error {
	if c.TTL <= 0 {
		return errors.New("ttl must be positive")
	}

	token, err := middleware.NewJWTAuth(c.Secret).GenerateAccessToken(c.UserID, c.TTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("devtoken"),
		kong.Description("Mint a studytime API token."),
		kong.UsageOnError(),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

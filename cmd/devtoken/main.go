package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// tokenOptions describe the identities to mint for local HS256 auth.
type tokenOptions struct {
	secret  string
	name    string
	email   string
	persona string
	claim   string
	ttl     time.Duration
	count   int
	prefix  string
	start   int
	output  string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &tokenOptions{}
	cmd := &cobra.Command{
		Use:           "devtoken [user-id]",
		Short:         "Mint bearer tokens for a server running with LOCAL_AUTH_MODE=hs256",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.secret == "" {
				o.secret = os.Getenv("LOCAL_AUTH_SHARED_SECRET")
			}
			if o.claim == "" {
				o.claim = os.Getenv("AUTH_PERSONA_CLAIM")
			}
			tokens, err := generateTokens(o, args, time.Now())
			if err != nil {
				return err
			}
			if o.output != "" {
				if err := writeTokens(o.output, tokens); err != nil {
					return fmt.Errorf("write tokens: %w", err)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), tokens[0])
			return err
		},
	}
	cmd.SetOut(out)
	f := cmd.Flags()
	f.StringVar(&o.secret, "secret", "", "Shared secret (default $LOCAL_AUTH_SHARED_SECRET)")
	f.StringVar(&o.name, "name", "", "name claim")
	f.StringVar(&o.email, "email", "", "email claim")
	f.StringVar(&o.persona, "persona", "employee", "admin or employee")
	f.StringVar(&o.claim, "persona-claim", "", "Claim carrying the persona (default $AUTH_PERSONA_CLAIM or persona)")
	f.DurationVar(&o.ttl, "ttl", time.Hour, "Token lifetime")
	f.IntVar(&o.count, "count", 1, "Number of tokens to generate")
	f.StringVar(&o.prefix, "prefix", "dev-user", "Prefix for generated user ids")
	f.IntVar(&o.start, "start", 1, "Starting index for generated user ids when count > 1")
	f.StringVar(&o.output, "output", "", "File to write the tokens to as a JSON array")
	return cmd
}

func generateTokens(o *tokenOptions, args []string, now time.Time) ([]string, error) {
	switch {
	case o.secret == "":
		return nil, errors.New("LOCAL_AUTH_SHARED_SECRET must be set")
	case o.count < 1:
		return nil, errors.New("count must be at least 1")
	case o.start < 1:
		return nil, errors.New("start index must be at least 1")
	case len(args) > 0 && o.count > 1:
		return nil, errors.New("explicit user id cannot be combined with count > 1")
	}
	claim := o.claim
	if claim == "" {
		claim = "persona"
	}

	tokens := make([]string, o.count)
	for i := range tokens {
		userID := o.prefix
		switch {
		case len(args) > 0:
			userID = args[0]
		case o.count > 1:
			userID = fmt.Sprintf("%s-%d", o.prefix, o.start+i)
		}
		claims := jwt.MapClaims{
			"sub": userID,
			"iat": now.Unix(),
			"exp": now.Add(o.ttl).Unix(),
			claim: o.persona,
		}
		if o.name != "" {
			claims["name"] = o.name
		}
		if o.email != "" {
			claims["email"] = o.email
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(o.secret))
		if err != nil {
			return nil, err
		}
		tokens[i] = tok
	}
	return tokens, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

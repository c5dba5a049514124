// Command calswap is a CLI client for the calswap service.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "calswap")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "calswap")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if !tf.ExpiresAt.IsZero() && time.Now().After(tf.ExpiresAt) {
		return "", fmt.Errorf("token expired, login again")
	}
	return tf.AccessToken, nil
}

// ---- HTTP client ----

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: base, http: &http.Client{Timeout: 15 * time.Second}}
}

type apiError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (c *apiClient) do(method, path string, body, out any, authed bool) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		tok, err := loadToken()
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var ae apiError
		if err := json.NewDecoder(resp.Body).Decode(&ae); err != nil || ae.Message == "" {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		return &ae
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ---- commands ----

func main() {
	var client *apiClient

	app := &cli.App{
		Name:  "calswap",
		Usage: "negotiate calendar event swaps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "calswap server base URL",
				EnvVars: []string{"CALSWAP_SERVER"},
			},
		},
		Before: func(cCtx *cli.Context) error {
			client = newAPIClient(cCtx.String("server"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "signup",
				Usage:     "create an account",
				ArgsUsage: "<username> <password>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 2 {
						return cli.Exit("usage: signup <username> <password>", 2)
					}
					var out map[string]any
					err := client.do(http.MethodPost, "/api/register",
						map[string]string{"username": cCtx.Args().Get(0), "password": cCtx.Args().Get(1)},
						&out, false)
					if err != nil {
						return err
					}
					return printJSON(out)
				},
			},
			{
				Name:      "login",
				Usage:     "authenticate and store the access token",
				ArgsUsage: "<username> <password>",
				Action: func(cCtx *cli.Context) error {
					if cCtx.NArg() != 2 {
						return cli.Exit("usage: login <username> <password>", 2)
					}
					var out struct {
						AccessToken string    `json:"access_token"`
						ExpiresAt   time.Time `json:"expires_at"`
						UserID      string    `json:"user_id"`
					}
					err := client.do(http.MethodPost, "/api/login",
						map[string]string{"username": cCtx.Args().Get(0), "password": cCtx.Args().Get(1)},
						&out, false)
					if err != nil {
						return err
					}
					if err := saveToken(out.AccessToken, out.ExpiresAt); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.UserID)
					return nil
				},
			},
			{
				Name:  "events",
				Usage: "manage your events",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list your events",
						Action: func(cCtx *cli.Context) error {
							var out []map[string]any
							if err := client.do(http.MethodGet, "/api/events", nil, &out, true); err != nil {
								return err
							}
							return printJSON(out)
						},
					},
					{
						Name:      "add",
						Usage:     "create an event",
						ArgsUsage: "<title> <starts-at RFC3339> <ends-at RFC3339>",
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 3 {
								return cli.Exit("usage: events add <title> <starts-at> <ends-at>", 2)
							}
							starts, err := time.Parse(time.RFC3339, cCtx.Args().Get(1))
							if err != nil {
								return fmt.Errorf("parse starts-at: %w", err)
							}
							ends, err := time.Parse(time.RFC3339, cCtx.Args().Get(2))
							if err != nil {
								return fmt.Errorf("parse ends-at: %w", err)
							}
							var out map[string]any
							err = client.do(http.MethodPost, "/api/events", map[string]any{
								"title":     cCtx.Args().Get(0),
								"starts_at": starts,
								"ends_at":   ends,
							}, &out, true)
							if err != nil {
								return err
							}
							return printJSON(out)
						},
					},
					{
						Name:      "set",
						Usage:     "set exchangeability (busy|swappable)",
						ArgsUsage: "<event-id> <status>",
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 2 {
								return cli.Exit("usage: events set <event-id> <busy|swappable>", 2)
							}
							var out map[string]any
							err := client.do(http.MethodPut, "/api/events/"+cCtx.Args().Get(0)+"/status",
								map[string]string{"status": cCtx.Args().Get(1)}, &out, true)
							if err != nil {
								return err
							}
							return printJSON(out)
						},
					},
					{
						Name:      "rm",
						Usage:     "delete an event",
						ArgsUsage: "<event-id>",
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 1 {
								return cli.Exit("usage: events rm <event-id>", 2)
							}
							return client.do(http.MethodDelete, "/api/events/"+cCtx.Args().Get(0), nil, nil, true)
						},
					},
				},
			},
			{
				Name:  "swaps",
				Usage: "negotiate event swaps",
				Subcommands: []*cli.Command{
					{
						Name:      "propose",
						Usage:     "propose swapping your event for someone else's",
						ArgsUsage: "<my-event-id> <their-event-id>",
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 2 {
								return cli.Exit("usage: swaps propose <my-event-id> <their-event-id>", 2)
							}
							var out map[string]any
							err := client.do(http.MethodPost, "/api/swaps", map[string]string{
								"my_event_id":    cCtx.Args().Get(0),
								"their_event_id": cCtx.Args().Get(1),
							}, &out, true)
							if err != nil {
								return err
							}
							return printJSON(out)
						},
					},
					{
						Name:      "accept",
						Usage:     "accept an incoming request",
						ArgsUsage: "<request-id>",
						Action:    respondAction(&client, true),
					},
					{
						Name:      "reject",
						Usage:     "reject an incoming request",
						ArgsUsage: "<request-id>",
						Action:    respondAction(&client, false),
					},
					{
						Name:  "incoming",
						Usage: "list requests addressed to you",
						Action: func(cCtx *cli.Context) error {
							var out []map[string]any
							if err := client.do(http.MethodGet, "/api/swaps/incoming", nil, &out, true); err != nil {
								return err
							}
							return printJSON(out)
						},
					},
					{
						Name:  "outgoing",
						Usage: "list requests you created",
						Action: func(cCtx *cli.Context) error {
							var out []map[string]any
							if err := client.do(http.MethodGet, "/api/swaps/outgoing", nil, &out, true); err != nil {
								return err
							}
							return printJSON(out)
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func respondAction(client **apiClient, accept bool) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		if cCtx.NArg() != 1 {
			return cli.Exit("usage: <request-id>", 2)
		}
		var out map[string]any
		err := (*client).do(http.MethodPost, "/api/swaps/"+cCtx.Args().Get(0)+"/respond",
			map[string]bool{"accept": accept}, &out, true)
		if err != nil {
			return err
		}
		return printJSON(out)
	}
}

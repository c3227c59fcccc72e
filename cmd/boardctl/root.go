package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/kanban"
)

// credentials is the YAML file boardctl reads its board access from.
type credentials struct {
	APIKey   string `yaml:"trello_api_key"`
	Token    string `yaml:"trello_token"`
	BoardID  string `yaml:"workspace_id"`
	Timezone string `yaml:"timezone"`
	BaseURL  string `yaml:"base_url"`
}

type boardOpener func(s domain.Settings, baseURL string) (board.API, error)

type options struct {
	configPath string
	creds      credentials
	asJSON     bool
	verbose    bool
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "aura", "boardctl.yaml")
	}
	return "boardctl.yaml"
}

// loadCredentials reads path and lets non-empty flag values win.
func loadCredentials(path string, flags credentials, explicit bool) (credentials, error) {
	var c credentials
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return c, fmt.Errorf("read %s: %w", path, err)
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.APIKey, flags.APIKey)
	override(&c.Token, flags.Token)
	override(&c.BoardID, flags.BoardID)
	override(&c.Timezone, flags.Timezone)
	override(&c.BaseURL, flags.BaseURL)
	return c, nil
}

func (c credentials) settings() domain.Settings {
	return domain.Settings{TrelloAPIKey: c.APIKey, TrelloToken: c.Token, WorkspaceID: c.BoardID}
}

func kanbanOptions(baseURL string) []kanban.Option {
	var opts []kanban.Option
	if baseURL != "" {
		opts = append(opts, kanban.WithBaseURL(baseURL))
	}
	return opts
}

func newRootCmd(out io.Writer, open boardOpener) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Operate on a board the way the assistant does",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "Credentials file (default "+defaultConfigPath()+")")
	pf.StringVar(&o.creds.APIKey, "key", "", "Board API key")
	pf.StringVar(&o.creds.Token, "token", "", "Board API token")
	pf.StringVarP(&o.creds.BoardID, "board", "b", "", "Board id")
	pf.StringVar(&o.creds.Timezone, "tz", "", "Timezone for due dates (default "+board.DefaultTimezone+")")
	pf.StringVar(&o.creds.BaseURL, "base-url", "", "Board API endpoint")
	pf.BoolVar(&o.asJSON, "json", false, "Print JSON instead of text")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(ensureTaskCmd(o, open), snapshotCmd(o, open), deadlinesCmd(o, open))
	return root
}

// session resolves credentials, the board id and a client.
func (o *options) session(open boardOpener) (credentials, string, board.API, error) {
	path, explicit := o.configPath, o.configPath != ""
	if !explicit {
		path = defaultConfigPath()
	}
	c, err := loadCredentials(path, o.creds, explicit)
	if err != nil {
		return c, "", nil, err
	}
	s := c.settings()
	boardID, err := s.BoardID("")
	if err != nil {
		return c, "", nil, err
	}
	api, err := open(s, c.BaseURL)
	if err != nil {
		return c, "", nil, err
	}
	return c, boardID, api, nil
}

func (o *options) print(w io.Writer, v any, text string) error {
	if !o.asJSON {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func ensureTaskCmd(o *options, open boardOpener) *cobra.Command {
	var req board.TaskRequest
	cmd := &cobra.Command{
		Use:   "ensure-task <person> <task...>",
		Short: "Add a task to a person's todo card, creating the list, card and checklist when missing",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, boardID, api, err := o.session(open)
			if err != nil {
				return err
			}
			req.BoardID = boardID
			req.Person = args[0]
			req.Text = strings.Join(args[1:], " ")
			res, err := board.NewSynchronizer(api, log.StandardLogger()).EnsureTask(cmd.Context(), req)
			if err != nil {
				return err
			}
			text := fmt.Sprintf("Added %q to %s (item %s)", req.Text, domain.TodoListName(req.Person), res.ItemID)
			if len(res.Created) > 0 {
				text += "; created " + strings.Join(res.Created, ", ")
			}
			return o.print(cmd.OutOrStdout(), res, text)
		},
	}
	cmd.Flags().StringVar(&req.ListName, "list", "", "List name (default \"<person>'s Todo\")")
	cmd.Flags().StringVar(&req.ChecklistName, "checklist", "", "Checklist name (default \""+domain.DefaultChecklistName+"\")")
	cmd.Flags().StringVar(&req.Due, "due", "", "Due date text appended to the task")
	return cmd
}

func snapshotCmd(o *options, open boardOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Show every list with its cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, boardID, api, err := o.session(open)
			if err != nil {
				return err
			}
			loc := board.LoadLocation(c.Timezone)
			snap, err := board.NewReader(api, loc).Snapshot(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), snap, board.RenderSnapshot(snap, loc))
		},
	}
}

func deadlinesCmd(o *options, open boardOpener) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "List cards by time remaining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, boardID, api, err := o.session(open)
			if err != nil {
				return err
			}
			ds, err := board.NewReader(api, board.LoadLocation(c.Timezone)).Deadlines(cmd.Context(), boardID, filter)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), ds, board.RenderDeadlines(ds))
		},
	}
	cmd.Flags().StringVar(&filter, "card", "", "Only cards matching this name")
	return cmd
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/idlepick/internal"
	"github.com/starford/idlepick/internal/apperr"
	"github.com/starford/idlepick/internal/codec"
	"github.com/starford/idlepick/internal/mcpserver"
	"github.com/starford/idlepick/internal/models"
	"github.com/starford/idlepick/internal/picker"
	"github.com/starford/idlepick/internal/storage"
	"github.com/starford/idlepick/internal/tui"
)

// runtimeAction loads the config, builds a runtime logging to logw and hands
// both to fn.
func runtimeAction(logw func(*internal.Config) (io.Writer, func(), error), fn func(context.Context, *cli.Command, *internal.Config, *internal.Runtime) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		w, done, err := logw(cfg)
		if err != nil {
			return err
		}
		defer done()

		rt, err := internal.NewRuntime(cfg, cliLogger(w, cfg), nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(ctx, cmd, cfg, rt)
	}
}

func toStderr(*internal.Config) (io.Writer, func(), error) {
	return os.Stderr, func() {}, nil
}

// toLogFile keeps log lines off the terminal while the picker owns it.
func toLogFile(cfg *internal.Config) (io.Writer, func(), error) {
	f, err := os.OpenFile(filepath.Join(cfg.Vault.Dir, "pick.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the picker as MCP tools over stdio",
		Action: runtimeAction(toStderr, func(_ context.Context, _ *cli.Command, cfg *internal.Config, rt *internal.Runtime) error {
			return mcpserver.New(rt.Session, rt.Exports, cfg.Steam.Coverage, internal.Version).ServeStdio()
		}),
	}
}

func pickCommand() *cli.Command {
	return &cli.Command{
		Name:  "pick",
		Usage: "Browse and select games in the terminal",
		Action: runtimeAction(toLogFile, func(ctx context.Context, _ *cli.Command, cfg *internal.Config, rt *internal.Runtime) error {
			p := tea.NewProgram(tui.New(rt.Session, rt.Exports, cfg.Steam.Coverage), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			return err
		}),
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download the owned games catalog and cache it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Usage: "Steam Web API key", Sources: cli.EnvVars("STEAM_API_KEY")},
			&cli.StringFlag{Name: "identity", Usage: "SteamID64, profile URL or vanity name", Sources: cli.EnvVars("STEAM_IDENTITY")},
			&cli.BoolFlag{Name: "max", Usage: "Include played free games and free subscriptions, keep unvetted apps"},
		},
		Action: runtimeAction(toStderr, func(ctx context.Context, cmd *cli.Command, cfg *internal.Config, rt *internal.Runtime) error {
			cov := cfg.Steam.Coverage
			if cmd.IsSet("max") {
				cov.Max = cmd.Bool("max")
			}
			req, err := rt.Session.Remembered(picker.FetchRequest{
				APIKey:   cmd.String("key"),
				Identity: cmd.String("identity"),
				Coverage: cov,
			})
			if err != nil {
				return err
			}
			res, err := rt.Session.Fetch(ctx, req)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d games for %s\n", res.Total, res.SteamID)
			if res.VaultWarning != "" {
				fmt.Fprintf(os.Stderr, "warning: credentials not remembered: %s\n", res.VaultWarning)
			}
			return nil
		}),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the cached catalog, optionally filtered",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive name filter"},
		},
		Action: runtimeAction(toStderr, func(_ context.Context, cmd *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			if rt.Session.Catalog() == nil {
				return noCatalog()
			}
			q := cmd.String("query")
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, row := range rt.Session.Render(q) {
				fmt.Fprintf(tw, "%s\t%s\n", row.Entry.ID, row.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, rt.Session.Summary(q))
			return nil
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write games.ps1, start.bat and selected_games.csv for a selection",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"o"}, Usage: "Output directory (default: export.dir)"},
			&cli.StringSliceFlag{Name: "ids", Usage: "App ids to select, comma or space separated"},
			&cli.StringFlag{Name: "import", Aliases: []string{"i"}, Usage: "CSV file whose first column lists app ids"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Select every game matching the filter"},
		},
		Action: runtimeAction(toStderr, func(ctx context.Context, cmd *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			svc := rt.Session
			if svc.Catalog() == nil {
				return noCatalog()
			}

			ids, err := parseIDs(cmd.StringSlice("ids"))
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := svc.Check(id); err != nil {
					return err
				}
			}
			if path := cmd.String("import"); path != "" {
				if _, err := svc.ImportFile(path); err != nil {
					return err
				}
			}
			if cmd.IsSet("query") {
				svc.SelectVisible(cmd.String("query"))
			}

			var out storage.Provider = rt.Exports
			if dir := cmd.String("dir"); dir != "" {
				if out, err = storage.EnsureFS(dir); err != nil {
					return err
				}
			}

			res, err := svc.Export(ctx, out)
			if errors.Is(err, apperr.ErrEmptySelection) {
				return fmt.Errorf("%w: pass --ids, --import or --query", err)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d games\n", res.Count)
			for _, f := range res.Files {
				fmt.Println(f)
			}
			return nil
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Preview which app ids a CSV file would select",
		ArgsUsage: "FILE",
		Action: runtimeAction(toStderr, func(_ context.Context, cmd *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("%w: FILE is required", apperr.ErrValidation)
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("%w: %v", apperr.ErrImportSourceUnreadable, err)
			}
			defer f.Close()

			ids, skipped, err := codec.ParseIDs(f)
			if err != nil {
				return err
			}
			c := rt.Session.Catalog()
			known := 0
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for id := range ids {
				name := "(not in catalog)"
				if e, ok := c.Lookup(id); ok {
					name = e.DisplayName()
					known++
				}
				fmt.Fprintf(tw, "%s\t%s\n", id, name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d ids, %d in catalog, %d lines skipped\n", len(ids), known, skipped)
			return nil
		}),
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Remember a Steam Web API key and identity",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "identity", Usage: "SteamID64, profile URL or vanity name"},
		},
		Action: runtimeAction(toStderr, func(_ context.Context, cmd *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			in := bufio.NewReader(os.Stdin)
			key, err := readSecret(in, "Steam Web API key: ")
			if err != nil {
				return err
			}
			identity := cmd.String("identity")
			if identity == "" {
				fmt.Fprint(os.Stderr, "SteamID64, profile URL or vanity name: ")
				line, err := in.ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read identity: %w", err)
				}
				identity = line
			}

			cred := models.Credential{APIKey: strings.TrimSpace(key), Identity: strings.TrimSpace(identity)}
			if cred.APIKey == "" || cred.Identity == "" {
				return fmt.Errorf("%w: key and identity are both required", apperr.ErrValidation)
			}
			if err := rt.Vault.Save(cred); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Credentials saved to", rt.Vault.Path())
			return nil
		}),
	}
}

func readSecret(in *bufio.Reader, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	return line, nil
}

func forgetCommand() *cli.Command {
	return &cli.Command{
		Name:  "forget",
		Usage: "Delete the remembered credentials",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "catalog", Usage: "Also delete the cached catalog"},
		},
		Action: runtimeAction(toStderr, func(_ context.Context, cmd *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			rt.Session.Forget()
			fmt.Fprintln(os.Stderr, "Credentials forgotten")
			if cmd.Bool("catalog") {
				if err := rt.Session.DropCatalog(); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, "Cached catalog deleted")
			}
			return nil
		}),
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the remembered identity and the cached catalog",
		Action: runtimeAction(toStderr, func(_ context.Context, _ *cli.Command, _ *internal.Config, rt *internal.Runtime) error {
			cred, state, err := rt.Session.Credentials()
			if err != nil {
				return err
			}
			fmt.Printf("vault:    %s (%s)\n", state, rt.Vault.Path())
			if cred.Identity != "" {
				fmt.Printf("identity: %s\n", cred.Identity)
			}
			fmt.Printf("api key:  %s\n", mask(cred.APIKey))
			if c := rt.Session.Catalog(); c != nil {
				fmt.Printf("catalog:  %d games for %s, fetched %s\n", c.Len(), c.SteamID, c.FetchedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		}),
	}
}

func mask(key string) string {
	switch {
	case key == "":
		return "(none)"
	case len(key) <= 4:
		return "****"
	default:
		return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
}

func noCatalog() error {
	return fmt.Errorf("%w: run `idlepick fetch` first", apperr.ErrNoCatalog)
}

func parseIDs(values []string) ([]models.AppID, error) {
	var ids []models.AppID
	for _, v := range values {
		for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an app id", apperr.ErrValidation, f)
			}
			ids = append(ids, models.AppID(n))
		}
	}
	return ids, nil
}


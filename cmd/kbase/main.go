// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/kbase"
	"github.com/poiesic/kbase/config"
	"github.com/poiesic/kbase/core"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ownerFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "owner",
		Aliases:  []string{"u"},
		Usage:    "Owner (tenant) id",
		Required: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kbase",
		Usage: "Tenant-scoped document knowledge base with RAG answers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (searches ./kbase.yaml and ~/.config/kbase/config.yaml when empty)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before reading the environment",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Override the data directory",
			},
		},
		Before: before,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Upload and ingest files for an owner",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags:     []cli.Flag{ownerFlag(), jsonFlag()},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question against an owner's documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags:     []cli.Flag{ownerFlag(), jsonFlag()},
			},
			{
				Name:   "reingest",
				Usage:  "Rebuild the chunks of an owner's documents",
				Action: reingestCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					jsonFlag(),
					&cli.Uint64SliceFlag{
						Name:  "doc",
						Usage: "Document id to reingest (repeatable; default all)",
					},
				},
			},
			{
				Name:   "documents",
				Usage:  "List an owner's documents and storage usage",
				Action: documentsCommand,
				Flags: []cli.Flag{
					ownerFlag(),
					jsonFlag(),
					&cli.Int64Flag{
						Name:  "quota",
						Usage: "Quota in bytes (default from config)",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show an owner's chat history",
				Action: historyCommand,
				Flags:  []cli.Flag{ownerFlag(), jsonFlag()},
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration to a file",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Destination path",
						Value: "kbase.yaml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func before(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	return config.LoadEnvFiles(c.String("env-file"))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func openService(c *cli.Context, opts ...kbase.Option) (*kbase.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	svc, err := kbase.FromConfig(c.Context, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return svc, nil
}

func ownerID(c *cli.Context) (core.ID, error) {
	id := core.ID(c.Uint64("owner"))
	if id == 0 {
		return 0, fmt.Errorf("owner must be greater than 0")
	}
	return id, nil
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progressOption advances bar as a batch makes progress.
func progressOption(bar *progressbar.ProgressBar) kbase.Option {
	return kbase.WithProgress(func(done, total int) {
		bar.ChangeMax(total)
		_ = bar.Set(done)
	})
}

func ingestCommand(c *cli.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	uploads := make([]kbase.Upload, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer f.Close()
		uploads = append(uploads, kbase.Upload{Name: filepath.Base(p), Body: f})
	}

	bar := newProgressBar(c.App.ErrWriter, len(uploads), "Ingesting")
	svc, err := openService(c, progressOption(bar))
	if err != nil {
		return err
	}
	defer svc.Close()

	result := svc.UploadBatch(c.Context, owner, uploads)
	_ = bar.Finish()
	fmt.Fprintln(c.App.ErrWriter)
	return printBatch(c, result)
}

func reingestCommand(c *cli.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	var ids []core.ID
	for _, id := range c.Uint64Slice("doc") {
		ids = append(ids, core.ID(id))
	}

	bar := newProgressBar(c.App.ErrWriter, -1, "Reingesting")
	svc, err := openService(c, progressOption(bar))
	if err != nil {
		return err
	}
	defer svc.Close()

	result := svc.Reingest(c.Context, owner, ids...)
	_ = bar.Finish()
	fmt.Fprintln(c.App.ErrWriter)
	return printBatch(c, result)
}

func printBatch(c *cli.Context, result kbase.BatchResult) error {
	if c.Bool("json") {
		return writeJSON(c.App.Writer, result)
	}
	if result.Status == kbase.StatusSuccess {
		color.New(color.FgGreen).Fprintln(c.App.Writer, result.Message)
	} else {
		color.New(color.FgRed).Fprintln(c.App.Writer, result.Message)
	}
	for _, doc := range result.Documents {
		fmt.Fprintf(c.App.Writer, "  %s  %s\n", doc.Id.String(), doc.Title)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	reply, err := svc.Ask(c.Context, owner, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, reply)
	}

	if reply.Degraded {
		color.New(color.FgYellow).Fprintln(c.App.Writer, reply.Answer)
	} else {
		fmt.Fprintln(c.App.Writer, reply.Answer)
	}
	if len(reply.Sources) > 0 {
		fmt.Fprintln(c.App.Writer)
		color.New(color.FgCyan).Fprintln(c.App.Writer, "Sources:")
		for _, src := range reply.Sources {
			fmt.Fprintf(c.App.Writer, "  - %s\n", src)
		}
	}
	return nil
}

func documentsCommand(c *cli.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	payload, err := svc.Documents(c.Context, owner, c.Int64("quota"))
	if err != nil {
		return fmt.Errorf("listing documents failed: %w", err)
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, payload)
	}
	renderDocuments(c.App.Writer, payload)
	return nil
}

func renderDocuments(w io.Writer, payload *kbase.DocumentsPayload) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Embedded", "Uploaded", "Size"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, d := range payload.Documents {
		table.Append([]string{
			d.Id.String(),
			d.Title,
			strconv.FormatBool(d.Embedded),
			d.UploadedAt,
			strconv.FormatInt(d.SizeBytes, 10),
		})
	}
	table.Render()

	st := payload.Storage
	fmt.Fprintf(w, "Storage: %s of %s (%d%%)\n", st.UsedHuman, st.QuotaHuman, st.UsedPct)
}

type historyEntry struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []string `json:"sources"`
	Time     string   `json:"time"`
	Date     string   `json:"date"`
}

func historyCommand(c *cli.Context) error {
	owner, err := ownerID(c)
	if err != nil {
		return err
	}
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	exchanges, err := svc.History(c.Context, owner)
	if err != nil {
		return fmt.Errorf("loading history failed: %w", err)
	}
	entries := toHistory(exchanges)
	if c.Bool("json") {
		return writeJSON(c.App.Writer, entries)
	}

	bold := color.New(color.Bold)
	for _, e := range entries {
		bold.Fprintf(c.App.Writer, "[%s %s] %s\n", e.Date, e.Time, e.Question)
		fmt.Fprintf(c.App.Writer, "%s\n\n", e.Answer)
	}
	return nil
}

func toHistory(exchanges []*core.ChatExchange) []historyEntry {
	entries := make([]historyEntry, 0, len(exchanges))
	for _, ex := range exchanges {
		entries = append(entries, historyEntry{
			Question: ex.Question,
			Answer:   ex.Answer,
			Sources:  ex.Sources,
			Time:     ex.Timestamp.Format("15:04"),
			Date:     ex.Timestamp.Format("2006-01-02"),
		})
	}
	return entries
}

func initConfigCommand(c *cli.Context) error {
	out := c.String("out")
	if _, err := os.Stat(out); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", out)
	}
	if err := config.Save(out, config.Default()); err != nil {
		return fmt.Errorf("writing config failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", out)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

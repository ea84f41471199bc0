package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/agrogestion/internal/channels"
	"github.com/JaimeStill/agrogestion/internal/docclient"
	"github.com/JaimeStill/agrogestion/pkg/bridge"
	"github.com/JaimeStill/agrogestion/pkg/formatting"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/query"
)

const (
	envBridgeURL   = "AGRO_BRIDGE_URL"
	envBridgeToken = "AGRO_BRIDGE_TOKEN"
	defaultURL     = "http://127.0.0.1:8080/bridge"
)

var errUsage = errors.New("usage")

type command func(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error

var commands = map[string]command{
	"save":     cmdSave,
	"download": cmdDownload,
	"exists":   cmdExists,
	"metadata": cmdMetadata,
	"delete":   cmdDelete,
	"ping":     cmdPing,
	"list":     cmdList,
	"export":   cmdExport,
	"exports":  cmdExports,
	"render":   cmdRender,
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("reports", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { fmt.Fprint(errOut, usageText) }

	var (
		url       = fs.String("url", envOr(envBridgeURL, defaultURL), "bridge base URL")
		transport = fs.String("transport", "http", "http or ws")
		token     = fs.String("token", os.Getenv(envBridgeToken), "bearer token")
		timeout   = fs.Duration("timeout", time.Minute, "per-call timeout")
		rate      = fs.Float64("rate", 0, "max invocations per second (0 disables)")
		verbose   = fs.Bool("v", false, "log failures to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n", fs.Arg(0))
		fs.Usage()
		return errUsage
	}

	level := slog.LevelError + 1
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	cfg := bridge.ClientConfig{
		BaseURL:   *url,
		Registry:  channels.Registry(),
		Token:     *token,
		Timeout:   *timeout,
		RateLimit: *rate,
	}

	var surface bridge.Surface
	switch *transport {
	case "http":
		s, err := bridge.NewHTTPClient(cfg)
		if err != nil {
			return err
		}
		surface = s
	case "ws":
		dialCtx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		ws, err := bridge.DialWS(dialCtx, cfg)
		if err != nil {
			return err
		}
		defer ws.Close()
		surface = ws
	default:
		return fmt.Errorf("unknown transport %q", *transport)
	}

	return cmd(ctx, docclient.New(surface, logger), fs.Args()[1:], out)
}

func cmdSave(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	id := fs.String("id", "", "report id")
	file := fs.String("file", "", "PDF to upload")
	image := fs.Bool("image", false, "report embeds an auxiliary image")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" || *file == "" {
		return fmt.Errorf("save: -id and -file are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}

	m, err := c.Save(ctx, *id, data, *image)
	if err != nil {
		return err
	}
	return printJSON(out, m)
}

func cmdDownload(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	id := fs.String("id", "", "report id")
	dest := fs.String("out", "", "destination file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id == "" || *dest == "" {
		return fmt.Errorf("download: -id and -out are required")
	}

	dl, err := c.Download(ctx, *id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*dest, dl.PDFBuffer, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s -> %s (%s)\n", *id, *dest, formatting.FormatBytes(int64(len(dl.PDFBuffer)), 1))
	return nil
}

func cmdExists(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	id, err := idFlag("exists", args)
	if err != nil {
		return err
	}
	return printJSON(out, c.Exists(ctx, id))
}

func cmdMetadata(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	id, err := idFlag("metadata", args)
	if err != nil {
		return err
	}
	return printJSON(out, c.GetMetadata(ctx, id))
}

func cmdDelete(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	id, err := idFlag("delete", args)
	if err != nil {
		return err
	}
	d, err := c.Delete(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(out, d)
}

func cmdPing(ctx context.Context, c *docclient.Client, _ []string, out io.Writer) error {
	if !c.TestConnection(ctx) {
		return fmt.Errorf("document store unreachable")
	}
	fmt.Fprintln(out, "connected")
	return nil
}

func cmdList(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", 0, "page size (server default when 0)")
	search := fs.String("search", "", "id filter")
	sort := fs.String("sort", "", "sort fields, e.g. -modifiedAt,id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	req := pagination.PageRequest{Page: *page, PageSize: *size}
	if *search != "" {
		req.Search = search
	}
	if *sort != "" {
		req.Sort = query.ParseSortFields(*sort)
	}

	result := c.List(ctx, req)
	if result == nil {
		return fmt.Errorf("list failed")
	}
	return printJSON(out, result)
}

func cmdExport(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	name := fs.String("name", "", "file name in the host export directory")
	file := fs.String("file", "", "PDF to export")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *name == "" || *file == "" {
		return fmt.Errorf("export: -name and -file are required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	f, err := c.ExportLocal(ctx, *name, data)
	if err != nil {
		return err
	}
	return printJSON(out, f)
}

func cmdExports(ctx context.Context, c *docclient.Client, _ []string, out io.Writer) error {
	files := c.Exports(ctx)
	if files == nil {
		return fmt.Errorf("listing exports failed")
	}
	for _, f := range files {
		fmt.Fprintf(out, "%-40s %10s  %s\n", f.Name, formatting.FormatBytes(f.Size, 1), f.ModifiedAt.Format(time.DateTime))
	}
	return nil
}

func idFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("id", "", "report id")
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if *id == "" {
		return "", fmt.Errorf("%s: -id is required", name)
	}
	return *id, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

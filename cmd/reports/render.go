package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JaimeStill/agrogestion/internal/docclient"
	"github.com/JaimeStill/agrogestion/internal/render"
)

// cmdRender builds a PDF from a CSV table (first row is the header) and
// optionally stores it through the bridge.
func cmdRender(ctx context.Context, c *docclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	title := fs.String("title", "", "report title")
	subtitle := fs.String("subtitle", "", "report subtitle")
	csvPath := fs.String("csv", "", "CSV table, first row is the header")
	imagePath := fs.String("image", "", "PNG or JPEG chart to embed")
	dest := fs.String("out", "", "write the PDF here")
	saveID := fs.String("save", "", "also store the PDF under this report id")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *title == "" || *csvPath == "" || (*dest == "" && *saveID == "") {
		return fmt.Errorf("render: -title, -csv and one of -out or -save are required")
	}

	columns, rows, err := readTable(*csvPath)
	if err != nil {
		return err
	}

	report := render.Report{
		Title:     *title,
		Subtitle:  *subtitle,
		Columns:   columns,
		Rows:      rows,
		Generated: time.Now(),
	}
	if *imagePath != "" {
		if report.Image, err = os.ReadFile(*imagePath); err != nil {
			return err
		}
	}

	pdf, err := render.Render(report)
	if err != nil {
		return err
	}

	if *dest != "" {
		if err := os.WriteFile(*dest, pdf, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", *dest)
	}

	if *saveID != "" {
		m, err := c.Save(ctx, *saveID, pdf, report.HasAuxiliaryImage())
		if err != nil {
			return err
		}
		return printJSON(out, m)
	}
	return nil
}

func readTable(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: no header row", path)
	}
	return records[0], records[1:], nil
}

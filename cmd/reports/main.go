// Command reports drives the document channels of a running bridge host from
// the command line, the same way the UI does through the document client.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.SetFlags(0)
		log.Fatal(err)
	}
}

const usageText = `usage: reports [-url URL] [-transport http|ws] [-token TOKEN] <command> [flags]

commands:
  save      -id ID -file report.pdf [-image]
  download  -id ID -out report.pdf
  exists    -id ID
  metadata  -id ID
  delete    -id ID
  ping
  list      [-page N] [-size N] [-search TEXT] [-sort FIELDS]
  export    -name FILE -file report.pdf
  exports
  render    -title TITLE -csv rows.csv [-subtitle TEXT] [-image chart.png] -out report.pdf [-save ID]
`

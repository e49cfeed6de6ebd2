// Command sir0dump inspects SIR0 wrapper files and extracts their content.
package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/pmdtools/go-ppmdu/sir0"
)

func main() {
	app := cli.App{
		Name:  "sir0dump",
		Usage: "Inspect SIR0 wrapper files",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show header and relocation table details",
				Action:    infoFile,
				ArgsUsage: "FILE",
			},
			{
				Name:      "extract",
				Usage:     "Write the unwrapped content, pointers restored",
				Action:    extractFile,
				ArgsUsage: "INPUT OUTPUT",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("sir0dump: %s", err)
	}
}

func infoFile(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument, got %d", c.Args().Len())
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	doc, err := sir0.Unwrap(data)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "file size:\t%d\n", len(data))
	fmt.Fprintf(w, "content size:\t%d\n", len(doc.Content))
	fmt.Fprintf(w, "data pointer:\t%#x\n", doc.DataPointer)
	fmt.Fprintf(w, "pointers:\t%d\n", len(doc.PointerOffsets))
	if err := w.Flush(); err != nil {
		return err
	}
	for _, off := range doc.PointerOffsets {
		fmt.Fprintf(c.App.Writer, "  %#08x -> %#08x\n", off, leU32(doc.Content[off:]))
	}
	return nil
}

func extractFile(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected 2 arguments, got %d", c.Args().Len())
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	doc, err := sir0.Unwrap(data)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Args().Get(1), doc.Content, 0o644)
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Command atpack inspects, packs and unpacks AT*/PKDPX compression
// containers.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/klauspost/compress/zlib"
	"github.com/urfave/cli/v2"

	"github.com/pmdtools/go-ppmdu/container"
)

var kindsByName = map[string]container.Kind{
	"at4pn":  container.AT4PN,
	"at3px":  container.AT3PX,
	"at4px":  container.AT4PX,
	"atupx":  container.ATUPX,
	"pkdpx":  container.PKDPX,
	"gennrl": container.GenericNRL,
	"bmarle": container.BMACollisionRLE,
	"bmanrl": container.BMALayerNRL,
	"bpcimg": container.BPCImage,
	"bpctlm": container.BPCTilemap,
}

var listsByName = map[string][]container.Kind{
	"best3":         container.Best3,
	"best4":         container.Best4,
	"mustcompress3": container.MustCompress3,
	"mustcompress4": container.MustCompress4,
	"pkd":           container.PKDOnly,
}

func main() {
	app := cli.App{
		Name:  "atpack",
		Usage: "Inspect, pack and unpack AT*/PKDPX compression containers",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Show header details of a container file",
				Action:    infoContainer,
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Usage: "container start offset within the file"},
				},
			},
			{
				Name:      "compress",
				Usage:     "Compress a file into a container",
				Action:    compressFile,
				ArgsUsage: "INPUT OUTPUT",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "best4",
						Usage: "container kind (at4px, pkdpx, ...) or kind list (best3, best4, mustcompress3, mustcompress4, pkd)",
					},
				},
			},
			{
				Name:      "decompress",
				Usage:     "Expand a container file",
				Action:    decompressFile,
				ArgsUsage: "INPUT OUTPUT",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Usage: "container start offset within the file"},
				},
			},
			{
				Name:      "stats",
				Usage:     "Compare container sizes for a file across all kinds",
				Action:    statsFile,
				ArgsUsage: "FILE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("atpack: %s", err)
	}
}

func requireArgs(c *cli.Context, n int) error {
	if c.Args().Len() != n {
		return fmt.Errorf("expected %d argument(s), got %d", n, c.Args().Len())
	}
	return nil
}

func infoContainer(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	cont, err := container.Parse(data, c.Int("offset"))
	if err != nil {
		return err
	}
	decomp, err := cont.Decompress()
	if err != nil {
		return fmt.Errorf("%s container, but payload does not decompress: %w", cont.Kind(), err)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "format:\t%s\n", cont.Kind())
	fmt.Fprintf(w, "container size:\t%d\n", cont.ContainerSize())
	fmt.Fprintf(w, "decompressed size:\t%d\n", len(decomp))
	fmt.Fprintf(w, "ratio:\t%.2f%%\n", ratio(cont.ContainerSize(), len(decomp)))
	return w.Flush()
}

func compressFile(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}

	format := strings.ToLower(c.String("format"))
	var out []byte
	if kinds, ok := listsByName[format]; ok {
		out, err = container.CompressBest(data, kinds)
	} else if kind, ok := kindsByName[format]; ok {
		var cont container.Container
		if cont, err = container.Compress(kind, data); err == nil {
			out = cont.Bytes()
		}
	} else {
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(c.Args().Get(1), out, 0o644)
}

func decompressFile(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}
	out, err := container.Decompress(data, c.Int("offset"))
	if err != nil {
		return err
	}
	return os.WriteFile(c.Args().Get(1), out, 0o644)
}

// statsFile compresses the input with every kind and prints the resulting
// sizes next to a zlib baseline.
func statsFile(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().Get(0))
	if err != nil {
		return err
	}

	type row struct {
		name string
		size int
		err  error
	}
	var rows []row
	for name, kind := range kindsByName {
		cont, err := container.Compress(kind, data)
		if err != nil {
			rows = append(rows, row{name: name, err: err})
			continue
		}
		rows = append(rows, row{name: name, size: cont.ContainerSize()})
	}
	if z, err := zlibSize(data); err == nil {
		rows = append(rows, row{name: "zlib (baseline)", size: z})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "format\tsize\tratio\n")
	for _, r := range rows {
		if r.err != nil {
			fmt.Fprintf(w, "%s\t-\t%s\n", r.name, shortErr(r.err))
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.2f%%\n", r.name, r.size, ratio(r.size, len(data)))
	}
	return w.Flush()
}

func zlibSize(data []byte) (int, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return 0, err
	}
	if _, err := zw.Write(data); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

func ratio(compressed, uncompressed int) float64 {
	if uncompressed == 0 {
		return 0
	}
	return float64(compressed) / float64(uncompressed) * 100
}

func shortErr(err error) string {
	s := err.Error()
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

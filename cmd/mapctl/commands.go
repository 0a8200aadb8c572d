package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/JonMunkholm/mapfield/internal/importer"
	"github.com/JonMunkholm/mapfield/internal/logging"
	"github.com/JonMunkholm/mapfield/internal/maptype"
	"github.com/spf13/cobra"
)

// cli holds state shared by all subcommands.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	pretty     bool
	outputPath string
	logLevel   string

	registry *maptype.Registry
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, registry: maptype.Default()}

	root := &cobra.Command{
		Use:           "mapctl",
		Short:         "Render and inspect choropleth map documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(c.stderr, c.logLevel, "text"))
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}
	root.PersistentFlags().BoolVar(&c.pretty, "pretty", false, "Pretty-print JSON output")
	root.PersistentFlags().StringVarP(&c.outputPath, "output", "o", "", "Output file path (default: stdout)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", logLevel, "Log level: debug, info, warn, error")

	root.AddCommand(
		c.renderCmd(),
		c.mapTypesCmd(),
		c.rangesCmd(),
		c.importCmd(),
		c.defaultsCmd(),
		c.exampleCmd(),
	)
	return root
}

func (c *cli) renderCmd() *cobra.Command {
	var (
		maxRows    int
		maxBytes   int64
		mountPoint string
	)

	cmd := &cobra.Command{
		Use:   "render [document.json|-]",
		Short: "Render a stored map document to a render call",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.readInput(args)
			if err != nil {
				return err
			}

			svc := core.NewService(c.registry, core.ServiceOptions{
				MountPoint:      mountPoint,
				MaxDatasetBytes: maxBytes,
				MaxDatasetRows:  maxRows,
			})
			call, err := svc.RenderJSON(cmd.Context(), doc)
			if err != nil {
				return c.userError(err)
			}
			return c.writeJSON(call)
		},
	}

	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Maximum dataset rows (0: unlimited)")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Maximum dataset bytes (0: unlimited)")
	cmd.Flags().StringVar(&mountPoint, "mount-point", core.DefaultMountPoint, "Element ID the map renders into")
	return cmd
}

func (c *cli) mapTypesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "maptypes",
		Short: "List the supported map types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := c.registry.All()
			if asJSON {
				return c.writeJSON(all)
			}

			var buf bytes.Buffer
			tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tJOIN KEY\tNAME FIELD")
			for _, d := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Label, d.JoinKey, d.NameField)
			}
			tw.Flush()
			return c.writeOutput(buf.Bytes())
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")
	return cmd
}

func (c *cli) rangesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ranges <text>",
		Short:   "Classify legend ranges text into data classes",
		Example: `  mapctl ranges "100,100-200,200"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ranges, err := core.ClassifyRanges(args[0])
			if err != nil {
				return c.userError(err)
			}
			if ranges == nil {
				ranges = []core.ColorRange{}
			}
			return c.writeJSON(ranges)
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	var (
		sheet      string
		delimiter  string
		asJSON     bool
		listSheets bool
		maxRows    int
	)

	cmd := &cobra.Command{
		Use:   "import-xlsx <workbook.xlsx>",
		Short: "Convert a worksheet to dataset text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer f.Close()

			if listSheets {
				names, err := importer.SheetNames(f)
				if err != nil {
					return c.userError(err)
				}
				return c.writeOutput([]byte(strings.Join(names, "\n") + "\n"))
			}

			svc := core.NewService(c.registry, core.ServiceOptions{MaxDatasetRows: maxRows})
			res, err := svc.ImportWorkbook(cmd.Context(), f, core.ImportOptions{Sheet: sheet, Delimiter: delimiter})
			if err != nil {
				return c.userError(err)
			}
			if asJSON {
				return c.writeJSON(res)
			}
			return c.writeOutput([]byte(res.Data))
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name (default: first sheet)")
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", `Output delimiter; \t for tab`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sheet, row count and data as JSON")
	cmd.Flags().BoolVar(&listSheets, "list-sheets", false, "List sheet names and exit")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Maximum rows (0: unlimited)")
	return cmd
}

func (c *cli) defaultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the default map document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.writeJSON(core.DefaultStoredConfig())
		},
	}
}

func (c *cli) exampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example <map-type>",
		Short: "Print the example dataset of a map type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := core.NewService(c.registry, core.ServiceOptions{})
			_, data, err := svc.MapTypeExample(args[0])
			if err != nil {
				return c.userError(err)
			}
			return c.writeOutput(data)
		},
	}
}

// readInput reads the named file, or stdin for "-" or no argument.
func (c *cli) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func (c *cli) writeJSON(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return c.writeOutput(buf.Bytes())
}

func (c *cli) writeOutput(data []byte) error {
	if c.outputPath == "" {
		_, err := c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(c.outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// reportedError marks an error already printed with its user message.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// userError prints the mapped message to stderr.
func (c *cli) userError(err error) error {
	fmt.Fprintf(c.stderr, "error: %s\n  %v\n", core.FormatUserError(err), err)
	return reportedError{err}
}

// run executes args and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return 0
	}
	var reported reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}

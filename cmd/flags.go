// flags.go defines global CLI flags and the lazily-constructed Service
// shared by every subcommand, mirroring the teacher's cmd/flags.go
// accessor-function style.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/attachment"
	"github.com/pharmadocs/dmsd/internal/config"
	"github.com/pharmadocs/dmsd/internal/dms"
	"github.com/pharmadocs/dmsd/internal/store"
)

// openStore opens (and initializes, if new) the SQLite store at dsn,
// creating its parent directory first.
func openStore(dsn string) (*store.SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	s, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Init(); err != nil {
		s.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return s, nil
}

var (
	output string
	pretty bool
)

// out is the output writer for commands; tests replace it to capture output.
var out io.Writer = os.Stdout

func Out() io.Writer     { return out }
func SetOut(w io.Writer) { out = w }
func JSON() bool         { return output == "json" }
func Pretty() bool       { return pretty }

// PrintJSON marshals v to JSON and writes it, if JSON output was requested.
func PrintJSON(v any) error {
	if !JSON() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// PrintJSONError reports err as a JSON error object when --output json is
// set, suppressing Cobra's own duplicate stderr print; otherwise it returns
// err unchanged so Cobra prints it as plain text.
func PrintJSONError(err error) error {
	if output != "json" || err == nil {
		return err
	}
	_ = PrintJSON(map[string]string{"error": err.Error()})
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: json")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Render document descriptions as markdown and colour diffs")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json"}, cobra.ShellCompDirectiveNoFileComp
	})
}

// svc is the process-wide Service, opened once on first use and closed by
// Execute on exit.
var svc *dms.Service

// serviceForCmd returns the shared Service, opening the configured store on
// first call.
func serviceForCmd() (*dms.Service, error) {
	if svc != nil {
		return svc, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s, err := openStore(cfg.StoreDSN())
	if err != nil {
		return nil, err
	}

	blobsDir := filepath.Join(filepath.Dir(cfg.StoreDSN()), "blobs")
	blobs, err := attachment.NewFSBlobs(blobsDir)
	if err != nil {
		return nil, fmt.Errorf("open attachment store: %w", err)
	}

	svc = dms.New(s, cfg, blobs, docxRenderer{})
	return svc, nil
}

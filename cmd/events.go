package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/releaseme/internal/git"
	"github.com/papapumpkin/releaseme/internal/shell"
	"github.com/papapumpkin/releaseme/internal/telemetry"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the release event log of the current repository",
	Long: `Reads and formats the JSONL event log release-me keeps in the git
directory: every run start, state transition, rollback, and outcome.

With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	eventsCmd.Flags().String("file", "", "event log to read (default: the current repository's)")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	follow, _ := cmd.Flags().GetBool("follow")
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		dir, err := workingDir()
		if err != nil {
			return err
		}
		repo := &git.Repo{Dir: dir, Runner: &shell.Exec{}}
		gitDir, err := repo.GitDir(cmd.Context())
		if err != nil {
			return err
		}
		path = telemetry.Path(gitDir)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("events: no event log at %s; it is created by the first release run", path)
		}
		return fmt.Errorf("events: open %s: %w", path, err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(f)
	if err := printLines(out, reader); err != nil {
		return fmt.Errorf("events: read %s: %w", path, err)
	}
	if !follow {
		return nil
	}
	return tailFollow(cmd, out, reader, path)
}

// printLines prints every complete line available from r.
func printLines(w io.Writer, r *bufio.Reader) error {
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			printEvent(w, line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// tailFollow watches the file for new data using fsnotify and prints new
// events until the command's context is done.
func tailFollow(cmd *cobra.Command, w io.Writer, r *bufio.Reader, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("events: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("events: watch %s: %w", path, err)
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("events: watch %s: %w", path, err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := printLines(w, r); err != nil {
				return fmt.Errorf("events: read %s: %w", path, err)
			}
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line string) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Local().Format(time.DateTime)), evt.Kind}
	if evt.State != "" {
		parts = append(parts, evt.State)
	}
	if evt.Version != "" {
		parts = append(parts, "version="+evt.Version)
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			if s := formatDataMap(m); s != "" {
				parts = append(parts, s)
			}
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

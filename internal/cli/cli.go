// Package cli implements the skelstitch command-line interface.
//
// This package provides commands for skeletonizing voxel masks, running the
// chunked pipeline (per-chunk extraction and per-object merge) against a
// fragment store, and inspecting skeleton documents. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - skeletonize: Extract a centerline skeleton from a single mask file
//   - chunk: Run one chunk task and persist the fragment
//   - merge: Merge an object's fragments into a versioned skeleton document
//   - info: Print statistics for a skeleton document
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/voxelab/skelstitch/pkg/buildinfo"
	"github.com/voxelab/skelstitch/pkg/errors"
	"github.com/voxelab/skelstitch/pkg/store"
	"github.com/voxelab/skelstitch/pkg/task"
)

// appName is the application name used for directories and display.
const appName = "skelstitch"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Skelstitch extracts and stitches skeletons from chunked voxel volumes",
		Long:         `Skelstitch turns segmented voxel volumes into centerline skeletons: each chunk of a volume is skeletonized independently, seam margins are cropped, and the per-chunk fragments are stitched into one skeleton per object.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.skeletonizeCommand())
	root.AddCommand(c.chunkCommand())
	root.AddCommand(c.mergeCommand())
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a task runner from the resolved configuration. The
// returned store must be closed by the caller.
func (c *CLI) newRunner(cmd *cobra.Command, cfg *Config) (*task.Runner, store.Store, error) {
	st, err := newStore(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	masks := task.DirMaskSource{Dir: cfg.MasksDir}
	return task.NewRunner(masks, st, c.Logger), st, nil
}

// newStore opens the store backend named by the configuration.
func newStore(cmd *cobra.Command, cfg *Config) (store.Store, error) {
	switch cfg.Store {
	case "", StoreFile:
		dir := cfg.StoreDir
		if dir == "" {
			var err error
			if dir, err = defaultStoreDir(); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "no store directory configured and no home directory")
			}
		}
		return store.NewFileStore(dir)
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "store %q requires redis_addr", cfg.Store)
		}
		return store.NewRedisStore(cmd.Context(), cfg.RedisAddr)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q (must be file or redis)", cfg.Store)
	}
}

// =============================================================================
// Paths
// =============================================================================

// defaultStoreDir returns the store directory using the XDG standard
// (~/.local/share/skelstitch/store).
func defaultStoreDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "store"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName, "store"), nil
}

// =============================================================================
// Argument Parsing
// =============================================================================

// parseChunkCoord parses a chunk coordinate of the form "x,y,z".
func parseChunkCoord(s string) ([3]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]int{}, errors.New(errors.ErrCodeInvalidInput, "chunk %q must have the form x,y,z", s)
	}
	var chunk [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return [3]int{}, errors.New(errors.ErrCodeInvalidInput, "chunk %q has non-integer component %q", s, p)
		}
		chunk[i] = v
	}
	return chunk, nil
}

package main

import (
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/archmap/archmap/internal/logging"
)

// annotationStructuredLog marks commands that log through slog instead of
// printing plain text.
const annotationStructuredLog = "archmap/structured-log"

var structured = map[string]string{annotationStructuredLog: "true"}

var rootCmd = &cobra.Command{
	Use:           "archmap",
	Short:         "archmap serves architecture diagrams and keeps their saved layouts in sync with the inventory.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: commandUsesStructuredLogging(cmd),
		}
		setCommandExecutionContext(ctx)
		if !ctx.UsesStructuredLog {
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
			Command: ctx.CommandPath,
			Writer:  os.Stdout,
		})
		return err
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, refreshCmd, layoutCmd)
}

type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	execCtxMu sync.Mutex
	execCtx   commandExecutionContext
)

func setCommandExecutionContext(ctx commandExecutionContext) {
	execCtxMu.Lock()
	defer execCtxMu.Unlock()
	execCtx = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(commandExecutionContext{})
}

func currentCommandExecutionContext() commandExecutionContext {
	execCtxMu.Lock()
	defer execCtxMu.Unlock()
	return execCtx
}

// commandUsesStructuredLogging reports whether cmd or one of its parents
// carries the structured-log annotation.
func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStructuredLog] == "true" {
			return true
		}
	}
	return false
}

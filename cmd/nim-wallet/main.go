// Command nim-wallet runs the assistant backend and the wallet-side chat client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/logging"
)

var (
	logLevel string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nim-wallet",
	Short: "Conversational crypto wallet for Avalanche",
	Long: `nim-wallet pairs an LLM assistant backend with a local wallet.

The backend ("serve") interprets chat messages and decides which wallet
action to run. The wallet ("chat", "history", "faucet", ...) keeps the key,
the transaction history and the conversation state on this machine.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the assistant HTTP API and the gRPC health endpoint",
	RunE:  runServe,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from this wallet",
	Long: `Starts an interactive session. Type a message and press enter.

Commands:
  /reset    forget the current conversation
  /history  print recent transactions
  /quit     exit`,
	RunE: runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the local transaction history",
	RunE:  runHistory,
}

var wrapCmd = &cobra.Command{
	Use:   "wrap [amount]",
	Short: "Wrap AVAX into WAVAX",
	Args:  cobra.ExactArgs(1),
	RunE:  runWrap,
}

var unwrapCmd = &cobra.Command{
	Use:   "unwrap [amount]",
	Short: "Unwrap WAVAX into AVAX",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnwrap,
}

var faucetCmd = &cobra.Command{
	Use:   "faucet",
	Short: "Request testnet AVAX for this wallet",
	RunE:  runFaucet,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, chatCmd, historyCmd, wrapCmd, unwrapCmd, faucetCmd, contactsCmd)
}

// newLogger builds the process logger. The --log-level flag wins over the
// configured level.
func newLogger(configured string, development bool) error {
	level := configured
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.New(level, development)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

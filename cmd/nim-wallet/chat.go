package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/becomeliminal/nim-wallet/client"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/history"
	"github.com/becomeliminal/nim-wallet/wallet"
)

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	epsilon, err := decimal.NewFromString(w.cfg.PollEpsilon)
	if err != nil {
		return fmt.Errorf("POLL_EPSILON: %w", err)
	}

	w.registerAddress(ctx)
	chain := w.evm.Chain()

	poller := history.NewPoller(w.evm, w.history, w.account.Address,
		history.WithInterval(w.cfg.PollInterval),
		history.WithEpsilon(epsilon),
		history.WithCurrency(chain.Symbol),
		history.WithPollerLogger(logger),
	)
	detector := history.NewDetector(w.evm, w.evm.Signer(), w.history, w.account.Address,
		history.WithScanInterval(w.cfg.ScanInterval),
		history.WithExplorer(chain.TxURL),
		history.WithDetectorCurrency(chain.Symbol),
		history.WithNicknames(contactNicknames(ctx, w.api)),
		history.WithDetectorLogger(logger),
	)
	session := client.NewSession(w.api, w.handler, w.store,
		client.WithNetwork(w.network),
		client.WithSessionLogger(logger),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wallet %s on %s\n", w.account.Address.Hex(), w.network)
	fmt.Fprintln(out, "Type a message, /history, /reset or /quit.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return detector.Run(gctx) })
	g.Go(func() error {
		defer cancel()
		return chatLoop(gctx, cmd.InOrStdin(), out, session, w.history)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// chatLoop reads one message per line until EOF, /quit or cancellation.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session *client.Session, hist *history.Store) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := session.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case "/history":
			entries, err := hist.Recent(ctx, wallet.HistoryLimit, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, history.FormatForDisplay(entries))
			continue
		}

		turn, err := session.Send(ctx, line)
		if err != nil {
			var unauthorized *core.UnauthorizedError
			if errors.As(err, &unauthorized) {
				fmt.Fprintln(out, "Your session expired. Sign in again and set USER_TOKEN.")
				continue
			}
			logger.Error("chat turn failed", zap.Error(err))
			fmt.Fprintln(out, client.BackendUnavailableMessage)
			continue
		}
		for _, msg := range turn.Messages {
			fmt.Fprintln(out, msg)
		}
	}
}

// contactNicknames snapshots the address book so incoming transfers can be
// labelled. Lookups never fail; unknown senders just get no nickname.
func contactNicknames(ctx context.Context, api *client.API) history.NicknameFunc {
	byAddress := make(map[string]string)
	contacts, err := api.Contacts(ctx)
	if err != nil {
		logger.Debug("load contacts for nicknames", zap.Error(err))
	}
	for _, c := range contacts {
		if c.Type == core.ContactAddress {
			byAddress[strings.ToLower(c.Value)] = c.Nickname
		}
	}
	return func(_ context.Context, address string) string {
		return byAddress[strings.ToLower(address)]
	}
}

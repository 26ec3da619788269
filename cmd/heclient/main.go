// Command heclient is the smoke-test binary of §6: it reads a
// whitespace-separated list of floats from standard input, connects to
// a heserver, and prints the decrypted results.
//
// Cobra command construction follows the pack's opal-lang/devcmd-style
// CLI idiom (a single root command with its flags bound via *Var, run
// via RunE) rather than stdlib flag, since this binary has the shape of
// a user-facing tool rather than a single-purpose daemon (cmd/heserver
// stays on stdlib flag for that reason).
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nnhe/nnhe/client"
	"github.com/nnhe/nnhe/hescheme"
)

func main() {
	var (
		host      string
		port      int
		batchSize int
		timeout   time.Duration
	)

	rootCmd := &cobra.Command{
		Use:           "heclient",
		Short:         "Send plaintext inputs to a heserver and print its decrypted results",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := readInputs(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading inputs: %w", err)
			}

			c, err := client.Connect(host, port, batchSize, inputs, hescheme.DefaultRegistry(), timeout)
			if err != nil {
				return fmt.Errorf("connecting to %s:%d: %w", host, port, err)
			}
			if err := c.Err(); err != nil {
				return fmt.Errorf("session failed: %w", err)
			}

			for _, v := range c.GetResults() {
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'g', -1, 64))
			}
			return nil
		},
	}

	rootCmd.Flags().StringVar(&host, "host", "127.0.0.1", "heserver host")
	rootCmd.Flags().IntVar(&port, "port", 50051, "heserver port")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 1, "lanes packed per ciphertext")
	rootCmd.Flags().DurationVar(&timeout, "dial-timeout", 10*time.Second, "connection dial timeout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readInputs parses a whitespace-separated list of floats from r, per
// §6's literal CLI description.
func readInputs(r io.Reader) ([]float64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	var inputs []float64
	for scanner.Scan() {
		tok := strings.TrimSpace(scanner.Text())
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as a float: %w", tok, err)
		}
		inputs = append(inputs, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// cmd/sidecarctl is a CLI client built with Cobra for operating against
// one sidecar instance.
//
// Usage:
//
//	sidecarctl status                          --server http://localhost:8080
//	sidecarctl blocks latest                   --server http://localhost:8080
//	sidecarctl blocks 12345                    --server http://localhost:8080 --api-key mykey
//	sidecarctl tx 0xabc...                     --server http://localhost:8080
//	sidecarctl tokens                          --server http://localhost:8080
//	sidecarctl limit broadcast mykey 5 3600    --server http://localhost:8080 --token s3cr3t
package main

import (
	"chainsidecar/internal/client"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	apiKey     string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "sidecarctl",
		Short: "CLI client for a blockchain sidecar",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "sidecar base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "",
		"API key to authenticate as (omit for anonymous, IP-limited access)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(statusCmd(), blocksCmd(), txCmd(), tokensCmd(), limitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the sidecar can reach its upstream node",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, apiKey, timeout)
			resp, err := c.Status(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(resp)
			if resp.Status != "ok" {
				os.Exit(1)
			}
			return nil
		},
	}
}

func blocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks <latest|height|hash>",
		Short: "Fetch a block by height, hash, or the keyword \"latest\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, apiKey, timeout)
			ctx := context.Background()
			var (
				raw json.RawMessage
				err error
			)
			if args[0] == "latest" {
				raw, err = c.LatestBlock(ctx)
			} else {
				raw, err = c.BlockByID(ctx, args[0])
			}
			if err == client.ErrNotFound {
				fmt.Printf("block %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrintRaw(raw)
			return nil
		},
	}
}

func txCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "Fetch a transaction by hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, apiKey, timeout)
			raw, err := c.Transaction(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Printf("transaction %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrintRaw(raw)
			return nil
		},
	}
}

func tokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List the blockchain's known token contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, apiKey, timeout)
			resp, err := c.Tokens(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

func limitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Peer-sync rate-limit operations",
	}

	var token string
	broadcastCmd := &cobra.Command{
		Use:   "broadcast <key> <value> <ttl-seconds>",
		Short: "Manually send a peer-sync counter contribution to --server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("value: %w", err)
			}
			ttl, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("ttl-seconds: %w", err)
			}
			c := client.New(serverAddr, apiKey, timeout)
			if err := c.BroadcastLimit(context.Background(), token, args[0], value, ttl); err != nil {
				return err
			}
			fmt.Println("broadcast accepted")
			return nil
		},
	}
	broadcastCmd.Flags().StringVar(&token, "token", "", "shared peer-sync bearer token")
	cmd.AddCommand(broadcastCmd)
	return cmd
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}

func prettyPrintRaw(raw json.RawMessage) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	prettyPrint(v)
}

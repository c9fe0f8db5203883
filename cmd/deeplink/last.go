package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/neboloop/deeplink/internal/server"
)

// LastCmd asks a running server for the most recent deep link.
func LastCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Print the most recent deep link of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := serverURL
			if base == "" {
				addr := "127.0.0.1:27460"
				if ServerConfig != nil {
					addr = ServerConfig.Server.Addr
				}
				base = "http://" + addr
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := printLast(ctx, cmd.OutOrStdout(), base); err != nil {
				return err
			}
			if follow {
				return followEvents(ctx, cmd.OutOrStdout(), base)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default: http://<server.addr>)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new links as they arrive")
	return cmd
}

func printLast(ctx context.Context, w io.Writer, base string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/plugin/deep-link/last", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("query server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query server: %s", resp.Status)
	}

	var body server.LastLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if body.URLs == nil {
		fmt.Fprintln(os.Stderr, "No deep link received yet.")
		return nil
	}
	for _, u := range body.URLs {
		fmt.Fprintln(w, u)
	}
	return nil
}

func followEvents(ctx context.Context, w io.Writer, base string) error {
	wsBase := "ws" + strings.TrimPrefix(strings.TrimRight(base, "/"), "http")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsBase+"/plugin/deep-link/events", nil)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var msg struct {
			Event   string   `json:"event"`
			Payload []string `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream: %w", err)
		}
		for _, u := range msg.Payload {
			fmt.Fprintln(w, u)
		}
	}
}

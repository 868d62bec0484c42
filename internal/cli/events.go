package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Event log commands",
	}

	cmd.AddCommand(createEventsListCmd())
	cmd.AddCommand(createEventsTailCmd())

	return cmd
}

func createEventsListCmd() *cobra.Command {
	var after int64
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List committed events",
		Long: `List committed events from the server's event log.

Events are returned in sequence order. Use --after with the last seen
sequence number to page through the log.

EXAMPLES:
  # Last page of events
  ledgerlens events list

  # Events after sequence 42
  ledgerlens events list --after 42 --limit 50
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsList(after, limit, jsonOutput)
		},
	}

	cmd.Flags().Int64Var(&after, "after", 0, "return events after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runEventsList(after int64, limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	events, err := c.ListEvents(context.Background(), after, limit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No events")
		return nil
	}

	for _, ev := range events {
		printEvent(ev.Seq, ev.Type, ev.CreatedAt, ev.Payload)
	}
	fmt.Printf("\n%d event(s)\n", len(events))

	return nil
}

func createEventsTailCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream events live",
		Long: `Connect to the server's event feed and print events as they are
committed. Runs until interrupted.

EXAMPLES:
  ledgerlens events tail
  ledgerlens events tail --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEventsTail(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON lines")

	return cmd
}

func runEventsTail(jsonOutput bool) error {
	wsURL, err := feedURL(getServer())
	if err != nil {
		return err
	}

	header := http.Header{}
	if key := getAPIKey(); key != "" {
		header.Set("X-API-Key", key)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to event feed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to connect to event feed: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "Connected to %s (Ctrl-C to stop)\n", wsURL)

	// Close the connection on interrupt so ReadMessage unblocks
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			// Interrupt closes the conn underneath us
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return fmt.Errorf("feed read error: %w", err)
		}

		if jsonOutput {
			fmt.Println(string(message))
			continue
		}

		var ev client.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			fmt.Println(string(message))
			continue
		}
		printEvent(ev.Seq, ev.Type, ev.CreatedAt, ev.Payload)
	}
}

// feedURL converts the HTTP server URL into the websocket feed URL
func feedURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a websocket URL
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/events/ws"
	return u.String(), nil
}

func printEvent(seq int64, eventType, createdAt string, payload json.RawMessage) {
	compact := string(payload)
	if len(compact) > 120 {
		compact = compact[:117] + "..."
	}
	fmt.Printf("%s  #%-6d %-24s %s\n", createdAt, seq, eventType, compact)
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// chatReply 与 /chat/complete 的响应体一致。
type chatReply struct {
	Reply        string   `json:"reply"`
	MemoriesUsed []string `json:"memories_used"`
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message and print the reply with the memories used",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if authToken == "" {
			return fmt.Errorf("a bearer token is required (--token or CORTEXA_TOKEN)")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Minute)
		defer cancel()

		reply, err := sendChat(ctx, http.DefaultClient, serverURL, authToken, args[0])
		if err != nil {
			return err
		}
		printReply(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func sendChat(ctx context.Context, client *http.Client, baseURL, token, message string) (*chatReply, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("error creating JSON payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/chat/complete", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat failed, status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var reply chatReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &reply, nil
}

func printReply(w io.Writer, reply *chatReply) {
	fmt.Fprintln(w, reply.Reply)
	if len(reply.MemoriesUsed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nMemories used:")
	for _, m := range reply.MemoriesUsed {
		fmt.Fprintf(w, "  - %s\n", m)
	}
}

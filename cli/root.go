// Package cli implements the command surface of the chat client.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chat-client/config"
	"chat-client/rest"
	"chat-client/session"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "chat-client",
	Short: "Terminal client for the chat service",
	Long: `chat-client talks to the chat server over its HTTP API and keeps an
open conversation live over the realtime channel, with a polling fallback
for anything the socket misses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return cfg.Validate()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// currentSession loads the persisted session or fails with a sign-in hint.
func currentSession() (*session.Session, error) {
	sess, err := session.Load(cfg.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("not signed in (run `chat-client login` first)")
	}
	return sess, nil
}

// apiClient builds a REST client bound to the given session's credential.
func apiClient(sess *session.Session) *rest.Client {
	token := ""
	if sess != nil {
		token = sess.Token
	}
	c := rest.New(cfg.ServerURL, token)
	c.MaxMessageLength = cfg.MaxMessageLength
	return c
}

package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var friendsCmd = &cobra.Command{
	Use:   "friends",
	Short: "List friends and pending requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		api := apiClient(sess)

		friends, err := api.Friends(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range friends {
			state := "offline"
			if f.Online {
				state = "online"
			}
			fmt.Printf("  %-20s #%-6d %s\n", f.Username, f.ID, state)
		}

		reqs, err := api.FriendRequests(cmd.Context())
		if err != nil {
			return err
		}
		if len(reqs) > 0 {
			fmt.Println("Pending requests:")
			for _, r := range reqs {
				fmt.Printf("  [%d] from %s\n", r.ID, r.From.Username)
			}
		}
		return nil
	},
}

var friendsAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Send a friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		if err := apiClient(sess).AddFriend(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Friend request sent to %s\n", args[0])
		return nil
	},
}

var friendsAcceptCmd = &cobra.Command{
	Use:   "accept <request-id>",
	Short: "Accept a pending friend request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("request id must be a number")
		}
		sess, err := currentSession()
		if err != nil {
			return err
		}
		return apiClient(sess).AcceptFriend(cmd.Context(), id)
	},
}

var friendsRemoveCmd = &cobra.Command{
	Use:   "remove <user-id>",
	Short: "Remove a friend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("user id must be a number")
		}
		sess, err := currentSession()
		if err != nil {
			return err
		}
		return apiClient(sess).RemoveFriend(cmd.Context(), id)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <mood>",
	Short: "Find a conversation partner by mood",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		conv, err := apiClient(sess).Match(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if other, ok := conv.Other(sess.UserID); ok {
			fmt.Printf("Matched with %s in conversation #%d\n", other.Username, conv.ID)
		} else {
			fmt.Printf("Matched in conversation #%d\n", conv.ID)
		}
		fmt.Printf("Run `chat-client chat %d` to start talking\n", conv.ID)
		return nil
	},
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations with their latest message",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		convs, err := apiClient(sess).Conversations(cmd.Context())
		if err != nil {
			return err
		}
		for _, conv := range convs {
			title := fmt.Sprintf("conversation #%d", conv.ID)
			if other, ok := conv.Other(sess.UserID); ok {
				title = other.Username
			}
			preview := ""
			if conv.LastMessage != nil {
				preview = fmt.Sprintf("  %s  %s",
					conv.LastMessage.CreatedAt.Local().Format(time.Kitchen),
					previewText(*conv.LastMessage))
			}
			fmt.Printf("  [%d] %-20s%s\n", conv.ID, title, preview)
		}
		return nil
	},
}

func init() {
	friendsCmd.AddCommand(friendsAddCmd, friendsAcceptCmd, friendsRemoveCmd)
	rootCmd.AddCommand(friendsCmd, matchCmd, conversationsCmd)
}

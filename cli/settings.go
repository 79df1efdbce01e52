package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show account settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		s, err := apiClient(sess).Settings(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("  language       %s\n", s.Language)
		fmt.Printf("  notifications  %t\n", s.Notifications)
		fmt.Printf("  mood           %s\n", s.Mood)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update one setting (language, notifications, mood)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			return err
		}
		api := apiClient(sess)

		s, err := api.Settings(cmd.Context())
		if err != nil {
			return err
		}
		switch args[0] {
		case "language":
			s.Language = args[1]
		case "notifications":
			v, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("notifications must be true or false")
			}
			s.Notifications = v
		case "mood":
			s.Mood = args[1]
		default:
			return fmt.Errorf("unknown setting %q", args[0])
		}
		return api.UpdateSettings(cmd.Context(), *s)
	},
}

func init() {
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

package cmd

import (
	"context"
	"fmt"

	"baburchi-admin/internal/event"
	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/service"

	"github.com/spf13/cobra"
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an account",
	Long: `Overwrite the password of an admin or moderator account without the old
one. Every open session of the account is signed out.`,
	RunE: resetPassword,
}

func init() {
	resetPasswordCmd.Flags().String("email", "admin@test.com", "account email")
	resetPasswordCmd.Flags().String("password", "", "new password (at least 6 characters)")
	_ = resetPasswordCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(resetPasswordCmd)
}

func resetPassword(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.closer()

	users := service.NewUserService(repository.NewUserRepo(e.db), event.NewBus("adminctl", e.log), e.cfg.Seed.DefaultPassword, e.log)
	if err := users.SetPassword(context.Background(), email, password); err != nil {
		return fmt.Errorf("failed to reset password for %s: %w", email, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Password for %s has been reset\n", email)
	return nil
}

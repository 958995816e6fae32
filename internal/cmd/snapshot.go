package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"baburchi-admin/internal/model"
	"baburchi-admin/internal/repository"
	"baburchi-admin/internal/snapshot"

	"github.com/spf13/cobra"
)

var importSnapshotCmd = &cobra.Command{
	Use:   "import-snapshot <file>",
	Short: "Load a browser or API backup into the database",
	Long: `Read a backup in the local-storage layout (baburchi_products,
baburchi_orders, ...) and upsert every entity it contains. Use "-" to
read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: importSnapshot,
}

var exportSnapshotCmd = &cobra.Command{
	Use:   "export-snapshot",
	Short: "Write the whole dataset as a backup document",
	RunE:  exportSnapshot,
}

func init() {
	importSnapshotCmd.Flags().String("actor", snapshot.AdminID, "user id recorded as the importer")
	exportSnapshotCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(importSnapshotCmd, exportSnapshotCmd)
}

func newSnapshotService(e *env) *snapshot.Service {
	return snapshot.NewService(e.db, snapshot.Repositories{
		Products: repository.NewProductRepo(e.db),
		Orders:   repository.NewOrderRepo(e.db),
		Leads:    repository.NewLeadRepo(e.db),
		Users:    repository.NewUserRepo(e.db),
		Settings: repository.NewSettingRepo(e.db),
	}, e.cfg.Seed.DefaultPassword, nil, e.log)
}

func importSnapshot(cmd *cobra.Command, args []string) error {
	actor, _ := cmd.Flags().GetString("actor")

	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var doc snapshot.Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.closer()

	summary, err := newSnapshotService(e).Import(context.Background(), &doc, actor)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Imported %d products, %d moderators, %d orders, %d leads\n",
		summary.Products, summary.Moderators, summary.Orders, summary.Leads)
	return nil
}

func exportSnapshot(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.closer()

	var session *model.User
	if admin, err := repository.NewUserRepo(e.db).FindByID(snapshot.AdminID); err == nil {
		session = admin
	}

	doc, err := newSnapshotService(e).Export(context.Background(), session)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

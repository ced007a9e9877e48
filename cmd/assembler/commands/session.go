package commands

import (
	"fmt"

	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the current assembly session",
	RunE:  runSession,
}

var removeCmd = &cobra.Command{
	Use:   "remove <component-id>",
	Short: "Remove a component from the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Empty the session's component set",
	RunE:  runReset,
}

var attachImageCmd = &cobra.Command{
	Use:   "attach-image <path>",
	Short: "Select the summary image for the session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttachImage,
}

var newWatchIDCmd = &cobra.Command{
	Use:   "new-watch-id",
	Short: "Regenerate the session's watch id, keeping its components",
	Long:  `Use after the ledger rejects a duplicate watch id. Components are preserved; the uploaded image and metadata of the old id are abandoned.`,
	RunE:  runNewWatchID,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(attachImageCmd)
	rootCmd.AddCommand(newWatchIDCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	sess := ws.intake.Session()
	fmt.Printf("Watch ID:      %s\n", sess.WatchID)
	fmt.Printf("Progress:      %s\n", sess.Step)
	fmt.Printf("Summary image: %s\n", orDash(sess.SummaryImage))
	if sess.ImageRef != "" {
		fmt.Printf("Uploaded ref:  %s\n", sess.ImageRef)
	}
	if sess.MetadataURI != "" {
		fmt.Printf("Metadata URI:  %s\n", sess.MetadataURI)
	}

	if len(sess.Components) == 0 {
		fmt.Println("\nNo components collected")
	} else {
		fmt.Printf("\n%-24s %-12s %-16s %-10s\n", "COMPONENT", "TYPE", "SERIAL", "STATUS")
		fmt.Println("----------------------------------------------------------------")
		for _, c := range sess.Components {
			fmt.Printf("%-24s %-12s %-16s %-10s\n", c.ID, c.Type, c.SerialNumber, registry.StatusName(c.Status))
		}
	}

	fmt.Println()
	printReadiness(ws)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.intake.Remove(args[0]); err != nil {
		return err
	}
	fmt.Printf("Removed %s (%d collected)\n", args[0], len(ws.intake.Session().Components))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.intake.ClearAll(); err != nil {
		return err
	}
	fmt.Println("Session reset")
	return nil
}

func runAttachImage(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.intake.AttachImage(args[0]); err != nil {
		return err
	}
	fmt.Printf("Summary image set: %s\n", args[0])
	printReadiness(ws)
	return nil
}

func runNewWatchID(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	fresh, err := ws.intake.NewWatchID()
	if err != nil {
		return err
	}
	fmt.Printf("New watch ID: %s\n", fresh)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/luxtrace/assembler/pkg/session"
	"github.com/luxtrace/assembler/pkg/validator"
	"github.com/spf13/cobra"
)

var scanPayload string

var scanCmd = &cobra.Command{
	Use:   "scan <component-id>...",
	Short: "Add scanned components to the current assembly session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanPayload, "payload", "", "Inline component record as JSON (skips the registry lookup)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	var inline *registry.Component
	if scanPayload != "" {
		if len(args) != 1 {
			return fmt.Errorf("--payload accepts exactly one component id")
		}
		inline = &registry.Component{}
		if err := json.Unmarshal([]byte(scanPayload), inline); err != nil {
			return errors.Wrap(err, "invalid inline payload")
		}
	}

	for _, id := range args {
		err := ws.intake.OnScanResult(ctx, id, inline)
		switch {
		case err == nil:
			fmt.Printf("Added %s (%d collected)\n", id, len(ws.intake.Session().Components))
		case errors.Is(err, session.ErrScanInFlight):
			// Event dropped; the scanner fired while a scan was pending.
			fmt.Printf("Ignored %s: scan in progress\n", id)
		case isRejection(err):
			fmt.Printf("Rejected %s: %s\n", id, validator.Message(err))
		default:
			return err
		}
	}

	printReadiness(ws)
	return nil
}

func isRejection(err error) bool {
	return errors.Is(err, validator.ErrNotFound) ||
		errors.Is(err, validator.ErrNotCertified) ||
		errors.Is(err, validator.ErrAlreadyUsed) ||
		errors.Is(err, validator.ErrAlreadyInSession)
}

func printReadiness(ws *workspace) {
	sess := ws.intake.Session()
	min := ws.cfg.MinComponents

	if missing := sess.MissingComponents(min); missing > 0 {
		fmt.Printf("%d more component(s) required before assembly\n", missing)
		return
	}
	if sess.SummaryImage == "" {
		fmt.Println("Attach a summary image before assembly (attach-image <path>)")
		return
	}
	fmt.Println("Session is ready to assemble")
}

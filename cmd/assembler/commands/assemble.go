package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/luxtrace/assembler/pkg/errors"
	"github.com/luxtrace/assembler/pkg/imagestore"
	"github.com/luxtrace/assembler/pkg/ledger"
	"github.com/luxtrace/assembler/pkg/metadata"
	appsaga "github.com/luxtrace/assembler/pkg/saga"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var assembleLocation string

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Commit the current session: upload documentation, generate metadata, mint the token",
	RunE:  runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)
	assembleCmd.Flags().StringVar(&assembleLocation, "location", "", "Assembly location (lat,lng)")
}

// boundedUploader applies the configured upload timeout; the mint call
// stays unbounded.
type boundedUploader struct {
	client  *imagestore.Client
	timeout time.Duration
}

func (b *boundedUploader) Upload(ctx context.Context, localPath string) (*imagestore.UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.Upload(ctx, localPath)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	cfg := ws.cfg
	if cfg.ContractAddress == "" {
		return fmt.Errorf("contract-address is required to assemble")
	}
	if cfg.AssemblerAddress == "" {
		return fmt.Errorf("assembler-address is required to assemble")
	}

	images, err := imagestore.NewClient(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		return errors.Wrap(err, "image store client failed")
	}
	meta := metadata.NewClient(cfg.MetadataURL, cfg.MetadataTimeout)
	gateway := ledger.NewClient(cfg.LedgerURL, cfg.ContractAddress)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appsaga.NewMachine(
		ws.store,
		ws.intake.Session(),
		ws.repo,
		&boundedUploader{client: images, timeout: cfg.UploadTimeout},
		meta,
		gateway,
		cfg.MinComponents,
		cfg.FSMMaxRetries,
	)

	result, err := machine.Run(ctx, manager, cfg.AssemblerAddress, assembleLocation)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateWatchID) {
			fmt.Println("The ledger already holds this watch id.")
			fmt.Println("Run 'assembler new-watch-id' and assemble again; your components are preserved.")
		}
		if errors.Is(err, ledger.ErrUserRejected) {
			fmt.Println("Transaction rejected in the wallet. The session is unchanged; run assemble again when ready.")
		}
		return err
	}

	fmt.Println("Watch assembled and minted")
	fmt.Printf("  Transaction:       %s\n", result.TransactionHash)
	if result.TokenIDApprox {
		fmt.Printf("  Token ID:          %d (approximate)\n", result.TokenID)
	} else {
		fmt.Printf("  Token ID:          %d\n", result.TokenID)
	}
	fmt.Printf("  Metadata URI:      %s\n", result.MetadataURI)
	fmt.Printf("  Image URI:         %s\n", result.ImageURI)
	fmt.Printf("  Verification code: %s\n", result.VerificationCode)

	return nil
}

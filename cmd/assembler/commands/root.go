package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "assembler",
	Short: "LuxTrace assembler - watch assembly orchestration",
	Long:  `Collects certified components into an assembly session and commits the finished watch to the ledger as a minted token.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("registry-path", ".artifacts/components.db", "Component registry SQLite path")
	rootCmd.PersistentFlags().String("session-path", ".artifacts/session", "Session store directory")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	rootCmd.PersistentFlags().String("s3-bucket", "luxtrace-assembly-docs", "Documentation image bucket")
	rootCmd.PersistentFlags().String("s3-region", "ap-southeast-1", "S3 region")
	rootCmd.PersistentFlags().String("metadata-url", "http://localhost:5000/api", "Metadata service base URL")
	rootCmd.PersistentFlags().String("ledger-url", "http://localhost:8545/bridge", "Wallet bridge base URL")
	rootCmd.PersistentFlags().String("contract-address", "", "Deployed watch contract address")
	rootCmd.PersistentFlags().String("assembler-address", "", "Assembler wallet address")
	rootCmd.PersistentFlags().Int("min-components", 3, "Minimum components per watch")

	viper.BindPFlag("registry-path", rootCmd.PersistentFlags().Lookup("registry-path"))
	viper.BindPFlag("session-path", rootCmd.PersistentFlags().Lookup("session-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("s3-bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("metadata-url", rootCmd.PersistentFlags().Lookup("metadata-url"))
	viper.BindPFlag("ledger-url", rootCmd.PersistentFlags().Lookup("ledger-url"))
	viper.BindPFlag("contract-address", rootCmd.PersistentFlags().Lookup("contract-address"))
	viper.BindPFlag("assembler-address", rootCmd.PersistentFlags().Lookup("assembler-address"))
	viper.BindPFlag("min-components", rootCmd.PersistentFlags().Lookup("min-components"))
}

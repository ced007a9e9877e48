package commands

import (
	"fmt"
	"time"

	"github.com/luxtrace/assembler/pkg/registry"
	"github.com/spf13/cobra"
)

var (
	registerType         string
	registerSerial       string
	registerManufacturer string
	registerLocation     string
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List all registered components and their status",
	RunE:  runComponents,
}

var registerCmd = &cobra.Command{
	Use:   "register <component-id>",
	Short: "Record a newly manufactured component",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var certifyCmd = &cobra.Command{
	Use:   "certify <component-id>",
	Short: "Certify a manufactured component",
	Args:  cobra.ExactArgs(1),
	RunE:  runCertify,
}

func init() {
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(certifyCmd)

	registerCmd.Flags().StringVar(&registerType, "type", "", "Component type (dial, crown, bezel, ...)")
	registerCmd.Flags().StringVar(&registerSerial, "serial", "", "Serial number")
	registerCmd.Flags().StringVar(&registerManufacturer, "manufacturer", "", "Manufacturer wallet address")
	registerCmd.Flags().StringVar(&registerLocation, "location", "", "Manufacturing location (lat,lng)")
	registerCmd.MarkFlagRequired("type")
	registerCmd.MarkFlagRequired("serial")
}

func runComponents(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	components, err := ws.repo.List()
	if err != nil {
		return err
	}

	if len(components) == 0 {
		fmt.Println("No components found")
		return nil
	}

	fmt.Printf("%-24s %-12s %-16s %-12s %-20s\n", "COMPONENT", "TYPE", "SERIAL", "STATUS", "CREATED")
	fmt.Println("----------------------------------------------------------------------------------------")
	for _, c := range components {
		fmt.Printf("%-24s %-12s %-16s %-12s %-20s\n",
			c.ID, c.Type, c.SerialNumber, registry.StatusName(c.Status), c.CreatedAt)
	}

	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	c := &registry.Component{
		ID:                  args[0],
		Type:                registerType,
		SerialNumber:        registerSerial,
		Status:              registry.StatusManufactured,
		ManufacturerAddress: registerManufacturer,
		Location:            registerLocation,
		RecordedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	if err := ws.repo.Create(c); err != nil {
		return err
	}

	fmt.Printf("Registered %s (%s)\n", c.ID, c.Type)
	return nil
}

func runCertify(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.repo.Certify(args[0]); err != nil {
		return err
	}

	fmt.Printf("Certified %s\n", args[0])
	return nil
}

package cmd

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jeremyhahn/go-certificate-authority/pkg/app"
	cmdca "github.com/jeremyhahn/go-certificate-authority/pkg/cmd/ca"

	"github.com/spf13/cobra"
)

var (
	InitParams *app.AppInitParams
)

var rootCmd = &cobra.Command{
	Use:   app.Name,
	Short: "A programmatic X.509 Certificate Authority",
	Long: `Issue, sign, revoke and publish status for X.509 certificates from a
self-contained Certificate Authority. Keys live in memory, encrypted at rest
in the CA home directory, or on a PKCS #11 token.`,
	SilenceUsage: true,
}

func init() {

	// Shared with the subcommand packages
	InitParams = &app.AppInitParams{}
	cmdca.InitParams = InitParams

	rootCmd.PersistentFlags().StringVarP(&InitParams.ConfigFile, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&InitParams.Home, "home", "", "Certificate Authority home directory where certificates and keys are stored")
	rootCmd.PersistentFlags().BoolVarP(&InitParams.Debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&InitParams.KeyPassword, "key-password", "p", "", "Password protecting the Certificate Authority private key at rest")
	rootCmd.PersistentFlags().StringVar(&InitParams.Pin, "pin", "", "PKCS #11 token user PIN. Overrides the configuration file")

	rootCmd.AddCommand(caCmd)

	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	return nil
}

package cmd

import (
	"github.com/jeremyhahn/go-certificate-authority/pkg/app"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the software version",
	Long:  `Displays software build and version details`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Name:\t\t%s\n", app.Name)
		cmd.Printf("Version:\t%s\n", app.Version)
		cmd.Printf("Repository:\t%s\n", app.Repository)
		cmd.Printf("Git Tag:\t%s\n", app.GitTag)
		cmd.Printf("Git Hash:\t%s\n", app.GitHash)
		cmd.Printf("Build Date:\t%s\n", app.BuildDate)
	},
}
